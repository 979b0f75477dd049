package cli

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
	"github.com/guaracyalima/xeco-public-sub002/pkg/split"
)

func newSplitCommand(v *viper.Viper) *cobra.Command {
	var total, merchantWallet, affiliateWallet, commission string
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Preview the fee, commission and merchant amounts of an order",
		Example: `  checkoutctl split --total 100 --merchant-wallet w1
  checkoutctl split --total 100 --merchant-wallet w1 --affiliate-wallet w2 --commission 5 --fee 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			calc, err := calculatorFrom(v)
			if err != nil {
				return err
			}
			amount, err := decimal.NewFromString(total)
			if err != nil {
				return fmt.Errorf("%w: total %q is not a number", checkouterr.ErrInvalidInput, total)
			}

			in := split.Input{TotalAmount: amount, MerchantWalletID: merchantWallet}
			if affiliateWallet != "" || commission != "" {
				pct, err := decimal.NewFromString(commission)
				if err != nil {
					return fmt.Errorf("%w: commission %q is not a number", checkouterr.ErrInvalidInput, commission)
				}
				in.Affiliate = &split.Affiliate{WalletID: affiliateWallet, CommissionPercentage: pct}
			}

			result, err := calc.Calculate(in)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(splitView(calc, result), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&total, "total", "", "order total")
	cmd.Flags().StringVar(&merchantWallet, "merchant-wallet", "", "merchant wallet id")
	cmd.Flags().StringVar(&affiliateWallet, "affiliate-wallet", "", "affiliate wallet id")
	cmd.Flags().StringVar(&commission, "commission", "", "affiliate commission percentage")
	_ = cmd.MarkFlagRequired("total")
	_ = cmd.MarkFlagRequired("merchant-wallet")
	cmd.MarkFlagsRequiredTogether("affiliate-wallet", "commission")
	return cmd
}

type splitLine struct {
	WalletID        string `json:"walletId"`
	PercentageValue string `json:"percentageValue"`
}

type splitOutput struct {
	PlatformFeePercentage     string      `json:"platformFeePercentage"`
	PlatformFeeAmount         string      `json:"platformFeeAmount"`
	AffiliateCommissionAmount string      `json:"affiliateCommissionAmount"`
	MerchantAmount            string      `json:"merchantAmount"`
	Splits                    []splitLine `json:"splits"`
}

func splitView(calc *split.Calculator, r split.Result) splitOutput {
	out := splitOutput{
		PlatformFeePercentage:     calc.PlatformFeePercentage().String(),
		PlatformFeeAmount:         r.PlatformFeeAmount.StringFixed(2),
		AffiliateCommissionAmount: r.AffiliateCommissionAmount.StringFixed(2),
		MerchantAmount:            r.MerchantAmount.StringFixed(2),
		Splits:                    []splitLine{},
	}
	for _, s := range r.Splits {
		out.Splits = append(out.Splits, splitLine{WalletID: s.WalletID, PercentageValue: s.PercentageValue.String()})
	}
	return out
}
