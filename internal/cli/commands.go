package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/adi-253/msglist/internal/config"
	"github.com/adi-253/msglist/internal/services"
	"github.com/spf13/cobra"
)

func newListCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every message in the store, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cfg(), func(ctl *services.MessageListController) error {
				ctl.LoadAll()
				ctl.Wait()

				state := ctl.State()
				if state.Status != "" {
					return errors.New(state.Status)
				}
				out := cmd.OutOrStdout()
				for _, e := range state.Messages {
					fmt.Fprintln(out, e.Message)
				}
				return nil
			})
		},
	}
}

func newGetCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print a single message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runOnce(cfg(), func(ctl *services.MessageListController) error {
				ctl.FetchOne(id)
				ctl.Wait()

				status := ctl.State().Status
				if status == services.StatusQueryFailed {
					return errors.New(status)
				}
				fmt.Fprintln(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}
}

func newAddCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text>...",
		Short: "Add a message; the words are joined with spaces",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return runOnce(cfg(), func(ctl *services.MessageListController) error {
				msg, ok := ctl.Add(text)
				if !ok {
					return errors.New("message text is empty")
				}
				ctl.Wait()

				status := ctl.State().Status
				if status != services.StatusAddOK {
					return errors.New(status)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", status, msg)
				return nil
			})
		},
	}
}

func newDeleteCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a message",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runOnce(cfg(), func(ctl *services.MessageListController) error {
				ctl.Remove(id)
				ctl.Wait()

				status := ctl.State().Status
				if status != services.StatusDeleteOK {
					return errors.New(status)
				}
				fmt.Fprintln(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid message id %q: %w", s, err)
	}
	return id, nil
}
