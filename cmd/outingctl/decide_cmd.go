package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/outing-approval/modules/outing"
	"github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"
	"github.com/iota-uz/outing-approval/modules/outing/services"
	"github.com/iota-uz/outing-approval/pkg/composables"
	"github.com/iota-uz/outing-approval/pkg/eventbus"
)

type decideOutput struct {
	ID      string               `json:"id"`
	Status  outingrequest.Status `json:"status"`
	Comment string               `json:"comment"`
}

func newDecideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decide <id> approve|reject [comment]",
		Short: "Record an approver decision and send the outcome message",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := outingrequest.Action(args[1])
			status, ok := action.Status()
			if !ok {
				return fmt.Errorf("action must be %q or %q, got %q", outingrequest.ActionApprove, outingrequest.ActionReject, args[1])
			}
			comment := ""
			if len(args) == 3 {
				comment = args[2]
			}

			conf, logger, err := loadConfig()
			if err != nil {
				return err
			}
			repo, err := outing.NewRepository(cmd.Context(), conf)
			if err != nil {
				return err
			}
			svc := services.NewOutingService(repo, outing.NewNotifier(conf), eventbus.NewEventPublisher(logger))

			ctx := composables.WithLogger(cmd.Context(), logger.WithField("command", "decide"))
			if err := svc.ApplyDecision(ctx, args[0], action, comment); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), decideOutput{ID: args[0], Status: status, Comment: comment})
		},
	}
}
