// Package cli implements checkoutctl, the operator tool for signing and
// verifying checkout payloads and previewing payout splits offline.
package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/guaracyalima/xeco-public-sub002/pkg/signature"
	"github.com/guaracyalima/xeco-public-sub002/pkg/split"
)

const (
	keySecret = "secret"
	keyFee    = "fee"
	keyConfig = "config"
)

// NewRootCommand builds the command tree around its own viper instance, so
// every invocation (and every test) starts from clean settings.
func NewRootCommand(version string) *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "checkoutctl",
		Short: "Sign, verify and split marketplace checkouts",
		Long: `checkoutctl computes the same signatures and payout splits as the checkout
services, for debugging disputes and rehearsing fee changes.

Settings come from flags, then environment, then the optional config file:
  --secret  / CHECKOUT_SIGNING_SECRET
  --fee     / PLATFORM_FEE_PERCENTAGE (default 8)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfigFile(v)
		},
	}

	flags := root.PersistentFlags()
	flags.String(keySecret, "", "shared signing secret")
	flags.Float64(keyFee, split.DefaultPlatformFeePercentage.InexactFloat64(), "platform fee percentage")
	flags.String(keyConfig, "", "optional YAML config file")
	_ = v.BindPFlag(keySecret, flags.Lookup(keySecret))
	_ = v.BindPFlag(keyFee, flags.Lookup(keyFee))
	_ = v.BindPFlag(keyConfig, flags.Lookup(keyConfig))
	_ = v.BindEnv(keySecret, "CHECKOUT_SIGNING_SECRET")
	_ = v.BindEnv(keyFee, "PLATFORM_FEE_PERCENTAGE")

	root.AddCommand(newSignCommand(v))
	root.AddCommand(newVerifyCommand(v))
	root.AddCommand(newSplitCommand(v))
	return root
}

func loadConfigFile(v *viper.Viper) error {
	path := v.GetString(keyConfig)
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read %s: %v", checkouterr.ErrConfiguration, path, err)
	}
	return nil
}

func guardFrom(v *viper.Viper) (*signature.Guard, error) {
	return signature.NewGuard(strings.TrimSpace(v.GetString(keySecret)))
}

func calculatorFrom(v *viper.Viper) (*split.Calculator, error) {
	fee, err := decimal.NewFromString(v.GetString(keyFee))
	if err != nil {
		return nil, fmt.Errorf("%w: fee %q is not a number", checkouterr.ErrConfiguration, v.GetString(keyFee))
	}
	return split.NewCalculator(fee)
}
