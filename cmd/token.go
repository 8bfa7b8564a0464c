package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/addestra-labs/addestra/internal/auth"
	"github.com/addestra-labs/addestra/internal/db"
)

var (
	tokenTenant string
	tokenUser   string
	tokenScope  string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens",
	Long: `Mint, list and revoke the bearer tokens HR backends use to call
the training API. The plaintext secret is printed once at mint time;
only its hash is stored.`,
}

var tokenMintCmd = &cobra.Command{
	Use:   "mint <name>",
	Short: "Mint a new API token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenTenant == "" || tokenUser == "" {
			return fmt.Errorf("--tenant and --user are required")
		}
		scope := auth.Scope(tokenScope)
		switch scope {
		case auth.ScopeRead, auth.ScopeReadWrite, auth.ScopeAdmin:
		default:
			return fmt.Errorf("invalid scope %q: must be read, readwrite or admin", tokenScope)
		}

		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		token, secret, err := auth.NewStore(database).Mint(
			context.Background(), args[0], tokenTenant, tokenUser, scope, tokenTTL)
		if err != nil {
			return fmt.Errorf("minting token: %w", err)
		}

		fmt.Printf("Token %s minted for tenant %s.\n\n", token.ID, token.TenantID)
		fmt.Printf("  %s\n\n", secret)
		fmt.Println("Store this secret now; it cannot be recovered later.")
		return nil
	},
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tokens for a tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenTenant == "" {
			return fmt.Errorf("--tenant is required")
		}

		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		tokens, err := auth.NewStore(database).List(context.Background(), tokenTenant)
		if err != nil {
			return fmt.Errorf("listing tokens: %w", err)
		}
		if len(tokens) == 0 {
			fmt.Println("No tokens.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tUSER\tSCOPE\tCREATED\tEXPIRES")
		for _, t := range tokens {
			expires := "never"
			if t.ExpiresAt != nil {
				expires = t.ExpiresAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.Name, t.UserID, t.Scope, t.CreatedAt.Format(time.RFC3339), expires)
		}
		return w.Flush()
	},
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := auth.NewStore(database).Revoke(context.Background(), args[0]); err != nil {
			return fmt.Errorf("revoking token: %w", err)
		}
		fmt.Printf("Token %s revoked.\n", args[0])
		return nil
	},
}

func openDatabase() (*db.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return database, nil
}

func init() {
	tokenCmd.PersistentFlags().StringVar(&tokenTenant, "tenant", "", "tenant the token belongs to")
	tokenMintCmd.Flags().StringVar(&tokenUser, "user", "", "user the token acts as")
	tokenMintCmd.Flags().StringVar(&tokenScope, "scope", "readwrite", "token scope: read, readwrite or admin")
	tokenMintCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (0 = no expiry)")

	tokenCmd.AddCommand(tokenMintCmd)
	tokenCmd.AddCommand(tokenListCmd)
	tokenCmd.AddCommand(tokenRevokeCmd)
	rootCmd.AddCommand(tokenCmd)
}
