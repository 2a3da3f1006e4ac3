// Command mrz is a workbench for the MRZ pipeline: parse and validate zones,
// and derive chip access keys, without running the HTTP service.
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/veripass/veripass/backend/reader-services/internal/bac"
	"github.com/veripass/veripass/backend/reader-services/internal/mrz"
	"github.com/veripass/veripass/backend/reader-services/internal/pace"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mrz",
		Short:        "Parse machine readable zones and derive chip access keys",
		SilenceUsage: true,
	}
	cmd.AddCommand(parseCmd(), validateCmd(), keysCmd())
	return cmd
}

// readLines collects the MRZ lines from arguments, a file or stdin.
func readLines(args []string, file string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	var in *os.File
	if file == "" || file == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}
	var lines []string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no MRZ lines provided")
	}
	return lines, nil
}

func parseCmd() *cobra.Command {
	var file string
	c := &cobra.Command{
		Use:   "parse [lines...]",
		Short: "Parse a zone and print the decoded fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readLines(args, file)
			if err != nil {
				return err
			}
			zone, perr := mrz.Parse(lines)
			if zone == nil {
				return perr
			}

			fmt.Printf("Format:          %s\n", zone.Format)
			fmt.Printf("Document Number: '%s'\n", zone.DocumentNumber)
			fmt.Printf("Issuing State:   %s\n", zone.IssuingState)
			fmt.Printf("Name:            %s, %s\n", zone.PrimaryName, zone.SecondaryName)
			fmt.Printf("Nationality:     %s\n", zone.Nationality)
			fmt.Printf("Birth Date:      '%s' (%s)\n", zone.BirthDate.Raw, zone.BirthDate.Resolved.Format("2006-01-02"))
			fmt.Printf("Sex:             %s\n", zone.Sex)
			fmt.Printf("Expiry Date:     '%s' (%s)\n", zone.ExpiryDate.Raw, zone.ExpiryDate.Resolved.Format("2006-01-02"))
			if zone.OptionalData != "" {
				fmt.Printf("Optional Data:   '%s'\n", zone.OptionalData)
			}

			if zone.Valid() {
				color.Green("All check digits verified")
				return nil
			}
			color.Red("Failed checks: %s", strings.Join(zone.FailedChecks(), ", "))
			return fmt.Errorf("zone did not validate")
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "", "Read MRZ lines from a file ('-' for stdin)")
	return c
}

func validateCmd() *cobra.Command {
	var file string
	c := &cobra.Command{
		Use:   "validate [lines...]",
		Short: "Check the zone's check digits (exit 1 on failure)",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readLines(args, file)
			if err != nil {
				return err
			}
			zone, perr := mrz.Parse(lines)
			if zone == nil {
				color.Red("unreadable: %v", perr)
				return perr
			}
			if zone.Valid() {
				color.Green("VALID (%s)", zone.Format)
				return nil
			}
			color.Red("INVALID (%s): %s", zone.Format, strings.Join(zone.FailedChecks(), ", "))
			return fmt.Errorf("validation failed")
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "", "Read MRZ lines from a file ('-' for stdin)")
	return c
}

func keysCmd() *cobra.Command {
	var file string
	var showPACE bool
	c := &cobra.Command{
		Use:   "keys [lines...]",
		Short: "Derive BAC keys (and optionally the PACE password) from a zone",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readLines(args, file)
			if err != nil {
				return err
			}
			zone, perr := mrz.Parse(lines)
			if zone == nil {
				return perr
			}
			if !zone.Valid() {
				color.Yellow("warning: failed checks: %s", strings.Join(zone.FailedChecks(), ", "))
			}

			info := zone.AccessKeyInput()
			seed := bac.SeedFromMRZ(info)
			keys, err := bac.DeriveKeys(seed)
			if err != nil {
				return err
			}
			fmt.Printf("Kseed: %s\n", hex.EncodeToString(seed))
			fmt.Printf("KEnc:  %s\n", hex.EncodeToString(keys.Enc))
			fmt.Printf("KMac:  %s\n", hex.EncodeToString(keys.Mac))

			if showPACE {
				fmt.Printf("PACE password: %s\n", hex.EncodeToString(pace.Password(info)))
				fmt.Println("PACE suites:")
				for _, s := range pace.Suites() {
					fmt.Printf("  %-26s %s\n", s.Name, s.OID)
				}
			}
			return nil
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "", "Read MRZ lines from a file ('-' for stdin)")
	c.Flags().BoolVar(&showPACE, "pace", false, "Also print the PACE password and supported suites")
	return c
}
