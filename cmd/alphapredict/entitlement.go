package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// --- Entitlement Command ---

var entitlementCmd = &cobra.Command{
	Use:   "entitlement [tier]",
	Short: "Show which model and credential serve a tier",
	Long:  "With no argument, prints the whole tier table. Credential values are never printed.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := loadResolver(cfg)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			e, err := resolver.Resolve(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Tier:        %s\n", e.Tier)
			fmt.Printf("Model:       %s\n", e.ModelName)
			fmt.Printf("Provider:    %s (%s)\n", e.Provider, e.ProviderModelID)
			fmt.Printf("Credential:  %s\n", e.CredentialKey)
			return nil
		}

		fmt.Printf("%-12s %-12s %-8s %-20s %s\n", "TIER", "MODEL", "PROVIDER", "MODEL ID", "CREDENTIAL")
		for _, e := range resolver.All() {
			fmt.Printf("%-12s %-12s %-8s %-20s %s\n", e.Tier, e.ModelName, e.Provider, e.ProviderModelID, e.CredentialKey)
		}
		return nil
	},
}
