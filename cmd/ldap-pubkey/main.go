// Command ldap-pubkey manages SSH public keys stored on user entries in an
// LDAP directory. It supports listing, adding, and deleting keys held in the
// multi-valued sshPublicKey attribute.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/isometry/ldap-pubkey/internal/ldap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ldap.KindOf(err).ExitCode())
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage(os.Stderr)
		return ldap.NewError(ldap.KindUsage, "ldap-pubkey", "no command given", nil)
	}
	switch args[0] {
	case "list":
		return runList(args[1:])
	case "add":
		return runAdd(args[1:])
	case "del":
		return runDel(args[1:])
	case "help", "-h", "--help":
		usage(os.Stdout)
		return nil
	default:
		usage(os.Stderr)
		return ldap.NewError(ldap.KindUsage, "ldap-pubkey", fmt.Sprintf("unknown command %q", args[0]), nil)
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Manage SSH public keys stored in an LDAP directory.

Usage:
  ldap-pubkey list [options]
  ldap-pubkey add [options] FILE
  ldap-pubkey del [options] PATTERN
  ldap-pubkey help

Commands:
  list    print the stored public keys of a user
  add     add public keys read from FILE (or stdin when FILE is "-")
  del     delete stored keys containing PATTERN

Options:
  -b, --base DN        base DN for the user search
  -c, --conf PATH      LDAP configuration file (default /etc/ldap.conf)
  -D, --binddn DN      bind as this DN instead of the target user
                       (%u expands to the target login)
  -H, --uri URI        directory server URI, repeatable, tried in order
  -q, --quiet          suppress informational output
  -u, --user LOGIN     target login (default: current user)
  -v, --verbose        list: print SHA256 fingerprints instead of raw keys
`)
}
