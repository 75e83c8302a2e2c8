package main

import (
	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/iota-uz/outing-approval/pkg/credential"
)

type signOutput struct {
	Assertion string                      `json:"assertion"`
	Claims    *credential.AssertionClaims `json:"claims"`
}

func newSignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign",
		Short: "Mint a signed assertion for the configured service identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, _, err := loadConfig()
			if err != nil {
				return err
			}
			signer := credential.NewSigner(conf.Sheets.Scope, conf.Sheets.TokenURL)
			assertion, err := signer.SignAssertion(conf.Sheets.ServiceAccountEmail, conf.Sheets.Key())
			if err != nil {
				return err
			}

			claims := &credential.AssertionClaims{}
			if _, _, err := jwt.NewParser().ParseUnverified(assertion, claims); err != nil {
				return errors.Wrap(err, "failed to decode assertion")
			}
			return writeJSON(cmd.OutOrStdout(), signOutput{Assertion: assertion, Claims: claims})
		},
	}
}
