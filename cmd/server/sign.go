package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"checkout-service/internal/config"
	"checkout-service/internal/signature"
)

func newSignCmd(cfgPath *string) *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "sign <order_id> <payment_id>",
		Short: "Print the checkout callback signature for an order and payment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				cfg, err := config.Load(*cfgPath)
				if err != nil {
					return err
				}
				secret = cfg.RazorpayKeySecret
			}
			if secret == "" {
				return errors.New("no secret: set RAZORPAY_KEY_SECRET or pass --secret")
			}
			fmt.Fprintln(cmd.OutOrStdout(), signature.Sign(secret, args[0], args[1]))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "key secret; defaults to RAZORPAY_KEY_SECRET")
	return cmd
}
