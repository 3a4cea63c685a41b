package cmd

import (
	"strings"

	"castplane/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Operator commands (requires the controller's admin secret)",
}

// adminClient authenticates with the admin secret instead of a user token.
func adminClient(cmd *cobra.Command) *ProjectClient {
	secret := viper.GetString("admin_secret")
	if secret == "" {
		cmd.Println("Admin secret not found. Please set it using the --admin-secret flag or the CASTCTL_ADMIN_SECRET environment variable")
		return nil
	}
	return NewProjectClient(viper.GetString("url"), secret)
}

var adminCreateUserCmd = &cobra.Command{
	Use:   "create-user [name]",
	Short: "Create a user and print their API token",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := adminClient(cmd)
		if client == nil {
			return
		}

		plans, _ := cmd.Flags().GetStringSlice("plans")
		rateLimit, _ := cmd.Flags().GetFloat64("rate-limit")
		burst, _ := cmd.Flags().GetInt("rate-limit-burst")

		resp, err := client.CreateUser(api.CreateUserRequest{
			Name:           args[0],
			Plans:          plans,
			RateLimit:      rateLimit,
			RateLimitBurst: burst,
		})
		if err != nil {
			cmd.Printf("Error creating user: %s\n", err)
			return
		}

		cmd.Println("User created successfully!")
		cmd.Printf("User ID: %s\n", resp.ID)
		cmd.Printf("Plans:   %s\n", formatPlans(resp.Plans))
		cmd.Printf("Token:   %s\n", resp.Token)
		cmd.Println("The token is shown only once.")
	},
}

var adminSetPlansCmd = &cobra.Command{
	Use:   "set-plans [user_id] [plan...]",
	Short: "Replace a user's plans; pass no plans to downgrade to free",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := adminClient(cmd)
		if client == nil {
			return
		}

		plans := args[1:]
		if err := client.SetUserPlans(args[0], plans); err != nil {
			cmd.Printf("Error updating plans: %s\n", err)
			return
		}
		cmd.Printf("User %s is now on %s.\n", args[0], formatPlans(plans))
	},
}

func formatPlans(plans []string) string {
	if len(plans) == 0 {
		return "free"
	}
	return strings.Join(plans, ", ")
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateUserCmd)
	adminCmd.AddCommand(adminSetPlansCmd)

	adminCmd.PersistentFlags().String("admin-secret", "", "Controller admin secret")
	viper.BindPFlag("admin_secret", adminCmd.PersistentFlags().Lookup("admin-secret"))

	adminCreateUserCmd.Flags().StringSlice("plans", nil, "Plan claims, e.g. pro,ultra")
	adminCreateUserCmd.Flags().Float64("rate-limit", 0, "Requests per second (0 means unlimited)")
	adminCreateUserCmd.Flags().Int("rate-limit-burst", 0, "Burst size")
}
