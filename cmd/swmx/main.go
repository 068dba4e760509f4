// Swmx - SonicWall to Meraki MX ACL migration tool
//
// Translates a SonicWall "show-run" configuration (address objects, address
// groups, service objects, service groups, and ipv4 access rules) into
// Policy Objects, Policy Object Groups, and L3/Inbound/Site-to-Site firewall
// rules on a Meraki MX security appliance.
//
// Examples:
//
//	swmx -r show-run.txt
//	swmx -r show-run.txt -v vlans.json -s static_routes.json
//	swmx -r show-run.txt --mapping --vlan-rules
//	swmx version
//
// The target org and network, the zone-to-VLAN mapping, and the ruleset
// classification sets come from the profile file (~/.swmx/profile.yaml or
// --profile). The Dashboard API key comes from MERAKI_API_KEY.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netmigrate/swmx/pkg/cli"
	"github.com/netmigrate/swmx/pkg/dashboard"
	"github.com/netmigrate/swmx/pkg/migrate"
	"github.com/netmigrate/swmx/pkg/settings"
	"github.com/netmigrate/swmx/pkg/util"
)

// App holds CLI state shared across commands.
type App struct {
	// Input flags
	runConfigPath string
	vlanPath      string
	staticPath    string
	profilePath   string

	// Option flags
	mapping   bool
	vlanRules bool
	assumeYes bool
	verbose   bool

	// Initialized state (set in PersistentPreRunE)
	profile *settings.Profile
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "swmx",
	Short:         "SonicWall ACL Config to Meraki MX Config",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Swmx imports SonicWall ACLs into a target Meraki MX network.

Objects and rules from the show-run file become Policy Objects, Policy
Object Groups, and MX firewall rules. Skipped entities are recorded in
unprocessed_objects.txt and unprocessed_rules.txt; inter-zone defaults
from any/any rules land in zone_default_traffic_map.csv.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		if app.verbose {
			util.SetLogLevel("debug")
		}

		var err error
		if app.profilePath != "" {
			app.profile, err = settings.LoadFrom(app.profilePath)
		} else {
			app.profile, err = settings.Load()
		}
		if err != nil {
			return fmt.Errorf("loading profile: %w", err)
		}
		return app.profile.Validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if app.runConfigPath == "" {
			return fmt.Errorf("a show-run file is required (-r)")
		}
		if err := checkFile(app.runConfigPath, "show run"); err != nil {
			return err
		}

		apiKey := settings.APIKey()
		if apiKey == "" {
			return fmt.Errorf("%s is not set", settings.APIKeyEnv)
		}

		if app.vlanPath != "" {
			if err := checkFile(app.vlanPath, "vlan"); err != nil {
				return err
			}
		} else if !cli.Confirm("No vlan file detected. Please ensure necessary source VLANs exist on the target MX. Continue?", true, app.assumeYes) {
			return nil
		}

		if app.staticPath != "" {
			if err := checkFile(app.staticPath, "static route"); err != nil {
				return err
			}
		} else if !cli.Confirm("No static route file detected. Please ensure necessary routes exist on the target MX. Continue?", true, app.assumeYes) {
			return nil
		}

		if !app.mapping {
			app.mapping = cli.Confirm("Perform mapping of firewall rules to rulesets?", false, app.assumeYes)
		}
		if !app.vlanRules {
			app.vlanRules = cli.Confirm("Create default VLAN zone rules?", false, app.assumeYes)
		}

		var opts []dashboard.Option
		if app.profile.CacheAddr != "" {
			cache, err := dashboard.NewListingCache(app.profile.CacheAddr, 0)
			if err != nil {
				util.Warnf("listing cache unavailable at %s: %v", app.profile.CacheAddr, err)
			} else {
				defer cache.Close()
				opts = append(opts, dashboard.WithCache(cache))
			}
		}
		dash := dashboard.New(apiKey, opts...)

		migrator := migrate.New(dash, app.profile, migrate.Options{
			Mapping:   app.mapping,
			VLANRules: app.vlanRules,
		})
		if err := migrator.Run(context.Background(), app.runConfigPath, app.vlanPath, app.staticPath); err != nil {
			return err
		}

		fmt.Println(cli.Green("Success!") + " ACL rules converted.")
		return nil
	},
}

func checkFile(path, kind string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s file not found: %s", kind, path)
	}
	return nil
}

func init() {
	rootCmd.Flags().StringVarP(&app.runConfigPath, "run-config", "r", "", "SonicWall show-run file (required)")
	rootCmd.Flags().StringVarP(&app.vlanPath, "vlans", "v", "", "JSON file of VLAN records")
	rootCmd.Flags().StringVarP(&app.staticPath, "static-routes", "s", "", "JSON file of static-route records")
	rootCmd.Flags().BoolVar(&app.mapping, "mapping", false, "Route rules to inbound/outbound/site-to-site rulesets by zone")
	rootCmd.Flags().BoolVar(&app.vlanRules, "vlan-rules", false, "Append default inter-zone VLAN deny rules")
	rootCmd.PersistentFlags().StringVar(&app.profilePath, "profile", "", "Profile file (default ~/.swmx/profile.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&app.assumeYes, "yes", "y", false, "Answer prompts with their default")
	rootCmd.PersistentFlags().BoolVar(&app.verbose, "verbose", false, "Verbose output")

	rootCmd.AddCommand(versionCmd)
}
