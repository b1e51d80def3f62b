// signagectl talks to the signage API from a terminal. Tokens obtained from
// the browser sign-in are saved with `signagectl login` and refreshed
// automatically when they expire.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"signage/client"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `usage: signagectl [flags] <command> [args]

commands:
  login --access-token T --refresh-token R   save tokens from the browser sign-in
  me                                         show the signed-in user
  refresh                                    rotate the saved tokens
  link <code>                                link a TV by its 4-digit code
  devices                                    list your devices
  unlink <device-id>                         unlink a device and print its new code
  health                                     show server health

flags:
`

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "signage", "tokens.yaml")
}

func run(ctx context.Context, args []string, out io.Writer) error {
	apiURL := os.Getenv("SIGNAGE_API")
	if apiURL == "" {
		apiURL = "http://localhost:8000/api/v1"
	}

	flagSet := pflag.NewFlagSet("signagectl", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVar(&apiURL, "api", apiURL, "API base URL (env SIGNAGE_API)")
	tokenFile := flagSet.String("token-file", defaultTokenFile(), "where tokens are kept")
	asJSON := flagSet.Bool("json", false, "print raw JSON")
	access := flagSet.String("access-token", "", "access token (login)")
	refresh := flagSet.String("refresh-token", "", "refresh token (login)")
	timeout := flagSet.Duration("timeout", 30*time.Second, "request timeout")
	flagSet.Usage = func() {
		fmt.Fprint(out, usage)
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		flagSet.Usage()
		return errors.New("missing command")
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	store := client.FileStore{Path: *tokenFile}
	c := client.New(apiURL, store)
	p := printer{out: out, json: *asJSON}

	switch cmd := rest[0]; cmd {
	case "login":
		if *access == "" || *refresh == "" {
			return errors.New("login needs --access-token and --refresh-token")
		}
		if err := store.Save(client.Tokens{AccessToken: *access, RefreshToken: *refresh}); err != nil {
			return err
		}
		fmt.Fprintf(out, "tokens saved to %s\n", *tokenFile)
		return nil

	case "me":
		u, err := c.Me(ctx)
		if err != nil {
			return err
		}
		company := "-"
		if u.CompanyID != nil {
			company = *u.CompanyID
		}
		return p.print(u, func(w io.Writer) {
			fmt.Fprintf(w, "%s <%s>\nrole: %s\ncompany: %s\ncan add devices: %t\n",
				u.FullName, u.Email, u.Role, company, u.CanAddDevices)
		})

	case "refresh":
		resp, err := c.Refresh(ctx)
		if err != nil {
			return err
		}
		return p.print(resp, func(w io.Writer) {
			fmt.Fprintf(w, "tokens refreshed, access token valid for %ds\n", resp.ExpiresIn)
		})

	case "link":
		if len(rest) != 2 {
			return errors.New("usage: signagectl link <code>")
		}
		d, err := c.LinkDevice(ctx, rest[1])
		if err != nil {
			return err
		}
		return p.print(d, func(w io.Writer) {
			fmt.Fprintf(w, "linked %s (%s)\n", d.DeviceName, d.ID)
		})

	case "devices":
		list, err := c.MyDevices(ctx)
		if err != nil {
			return err
		}
		return p.print(list, func(w io.Writer) {
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDEVICE UID\tONLINE\tLAST SEEN")
			for _, d := range list {
				seen := "-"
				if d.LastSeen != nil {
					seen = d.LastSeen.Local().Format(time.DateTime)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", d.ID, d.DeviceName, d.DeviceUID, d.IsOnline, seen)
			}
			tw.Flush()
		})

	case "unlink":
		if len(rest) != 2 {
			return errors.New("usage: signagectl unlink <device-id>")
		}
		pc, err := c.UnlinkDevice(ctx, rest[1])
		if err != nil {
			return err
		}
		return p.print(pc, func(w io.Writer) {
			fmt.Fprintf(w, "unlinked; new pairing code %s (valid %d min)\n", pc.DeviceCode, pc.ExpiresInMinutes)
		})

	case "health":
		h, err := c.Health(ctx)
		if err != nil {
			return err
		}
		return p.print(h, func(w io.Writer) {
			fmt.Fprintf(w, "status: %v\nversion: %v\n", h["status"], h["version"])
		})

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

type printer struct {
	out  io.Writer
	json bool
}

func (p printer) print(v any, text func(io.Writer)) error {
	if p.json {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(p.out)
	return nil
}
