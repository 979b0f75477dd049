package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/guaracyalima/xeco-public-sub002/pkg/signature"
)

func newSignCommand(v *viper.Viper) *cobra.Command {
	var (
		file      string
		canonical bool
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the signature of a checkout payload",
		Example: `  checkoutctl sign --file payload.json
  cat payload.json | checkoutctl sign --file - --canonical`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			guard, err := guardFrom(v)
			if err != nil {
				return err
			}
			payload, err := readPayload(cmd, file)
			if err != nil {
				return err
			}
			if canonical {
				raw, err := signature.Canonicalize(payload)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			}
			sig, err := guard.Sign(payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "payload JSON file, - for stdin")
	cmd.Flags().BoolVar(&canonical, "canonical", false, "also print the canonical bytes that are signed")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newVerifyCommand(v *viper.Viper) *cobra.Command {
	var file, candidate string
	cmd := &cobra.Command{
		Use:     "verify",
		Short:   "Check a signature against a checkout payload",
		Example: `  checkoutctl verify --file payload.json --signature 3f1a...`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			guard, err := guardFrom(v)
			if err != nil {
				return err
			}
			payload, err := readPayload(cmd, file)
			if err != nil {
				return err
			}
			if !guard.Verify(payload, candidate) {
				return fmt.Errorf("%w: signature does not match payload", checkouterr.ErrSignatureMismatch)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signature valid")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "payload JSON file, - for stdin")
	cmd.Flags().StringVarP(&candidate, "signature", "s", "", "hex signature to check")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}

func readPayload(cmd *cobra.Command, file string) (signature.Payload, error) {
	var (
		raw []byte
		err error
	)
	if file == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(file)
	}
	if err != nil {
		return signature.Payload{}, fmt.Errorf("read payload: %w", err)
	}

	var payload signature.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return signature.Payload{}, fmt.Errorf("%w: payload is not valid JSON: %v", checkouterr.ErrInvalidInput, err)
	}
	return payload, nil
}
