package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/iota-uz/outing-approval/modules/outing"
	"github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"
)

type recordOutput struct {
	ID          string                   `json:"id"`
	Status      outingrequest.Status     `json:"status"`
	Comment     string                   `json:"comment"`
	Submission  outingrequest.Submission `json:"submission"`
	ClientIP    string                   `json:"ip"`
	UserAgent   string                   `json:"ua"`
	SubmittedAt string                   `json:"timestamp,omitempty"`
}

func toOutput(rec *outingrequest.Record) recordOutput {
	out := recordOutput{
		ID:         rec.ID,
		Status:     rec.Status,
		Comment:    rec.Comment,
		Submission: rec.Submission,
		ClientIP:   rec.ClientIP,
		UserAgent:  rec.UserAgent,
	}
	if !rec.SubmittedAt.IsZero() {
		out.SubmittedAt = rec.SubmittedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <id>",
		Short: "Read one outing request from the configured row store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, _, err := loadConfig()
			if err != nil {
				return err
			}
			repo, err := outing.NewRepository(cmd.Context(), conf)
			if err != nil {
				return err
			}
			rec, err := repo.FindByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), toOutput(rec))
		},
	}
}
