package main

import (
	"fmt"
	"io"
	"os"
	"os/user"

	"github.com/spf13/pflag"

	"github.com/isometry/ldap-pubkey/internal/config"
	"github.com/isometry/ldap-pubkey/internal/ldap"
	"github.com/isometry/ldap-pubkey/internal/pubkey"
)

// commonOpts are the flags shared by every subcommand.
type commonOpts struct {
	base   string
	conf   string
	bindDN string
	uris   []string
	quiet  bool
	login  string
}

func addCommonFlags(fs *pflag.FlagSet, o *commonOpts) {
	fs.StringVarP(&o.base, "base", "b", "", "base DN for the user search")
	fs.StringVarP(&o.conf, "conf", "c", config.DefaultPath, "LDAP configuration file")
	fs.StringVarP(&o.bindDN, "binddn", "D", "", "bind as this DN instead of the target user")
	fs.StringArrayVarP(&o.uris, "uri", "H", nil, "directory server URI (repeatable, tried in order)")
	fs.BoolVarP(&o.quiet, "quiet", "q", false, "suppress informational output")
	fs.StringVarP(&o.login, "user", "u", "", "target login (default: current user)")
}

func parseFlags(name string, fs *pflag.FlagSet, args []string) ([]string, error) {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			usage(os.Stdout)
			return nil, err
		}
		return nil, ldap.NewError(ldap.KindUsage, name, err.Error(), nil)
	}
	return fs.Args(), nil
}

// resolveConfig merges the configuration file with the command-line
// overrides into the effective configuration.
func (o *commonOpts) resolveConfig() *config.Config {
	return config.Resolve(config.Load(o.conf), config.Overrides{
		URIs:   o.uris,
		BaseDN: o.base,
		BindDN: o.bindDN,
	})
}

// targetLogin returns the login the operation acts on, defaulting to the
// invoking OS user.
func (o *commonOpts) targetLogin() (string, error) {
	if o.login != "" {
		return o.login, nil
	}
	current, err := user.Current()
	if err != nil {
		return "", ldap.NewError(ldap.KindUsage, "resolve-user",
			"cannot determine the current user, pass --user", err)
	}
	return current.Username, nil
}

// bindSession authenticates the connected session: as the configured bind DN
// when one is set (mode a), otherwise as the target user's own identity with
// the user's own password (mode b).
func bindSession(sess *ldap.Session, cfg *config.Config, login string) error {
	if cfg.BindDN != "" {
		dn := cfg.BindDNFor(login)
		password, err := promptPassword(fmt.Sprintf("Password for %s: ", dn))
		if err != nil {
			return err
		}
		return sess.Bind(dn, password)
	}
	password, err := promptPassword(fmt.Sprintf("Password for %s: ", login))
	if err != nil {
		return err
	}
	return sess.BindAsUser(login, password)
}

func runList(args []string) error {
	var o commonOpts
	var verbose bool
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	addCommonFlags(fs, &o)
	fs.BoolVarP(&verbose, "verbose", "v", false, "print SHA256 fingerprints instead of raw keys")
	rest, err := parseFlags("list", fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return ldap.NewError(ldap.KindUsage, "list", fmt.Sprintf("unexpected argument %q", rest[0]), nil)
	}

	login, err := o.targetLogin()
	if err != nil {
		return err
	}
	cfg := o.resolveConfig()

	sess := ldap.NewSession(cfg, newLogger(o.quiet))
	defer sess.Close()
	if err := sess.Connect(); err != nil {
		return err
	}
	// Listing reads with an anonymous bind unless an explicit bind DN is
	// configured.
	if cfg.BindDN != "" {
		if err := bindSession(sess, cfg, login); err != nil {
			return err
		}
	}

	keys, err := sess.FindPubkeys(login)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if verbose {
			if fp, err := pubkey.Fingerprint(key); err == nil {
				fmt.Printf("%s %s\n", fp, pubkey.DisplayName(key))
				continue
			}
		}
		fmt.Println(key)
	}
	return nil
}

func runAdd(args []string) error {
	var o commonOpts
	fs := pflag.NewFlagSet("add", pflag.ContinueOnError)
	addCommonFlags(fs, &o)
	rest, err := parseFlags("add", fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return ldap.NewError(ldap.KindUsage, "add", `expected exactly one FILE argument ("-" for stdin)`, nil)
	}

	keys, err := readKeys(rest[0])
	if err != nil {
		return err
	}
	login, err := o.targetLogin()
	if err != nil {
		return err
	}
	cfg := o.resolveConfig()

	sess := ldap.NewSession(cfg, newLogger(o.quiet))
	defer sess.Close()
	if err := sess.Connect(); err != nil {
		return err
	}
	if err := bindSession(sess, cfg, login); err != nil {
		return err
	}

	for _, key := range keys {
		if err := sess.AddPubkey(login, key); err != nil {
			return err
		}
		if !o.quiet {
			fmt.Printf("Added key: %s\n", pubkey.DisplayName(key))
		}
	}
	return nil
}

func runDel(args []string) error {
	var o commonOpts
	fs := pflag.NewFlagSet("del", pflag.ContinueOnError)
	addCommonFlags(fs, &o)
	rest, err := parseFlags("del", fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return ldap.NewError(ldap.KindUsage, "del", "expected exactly one PATTERN argument", nil)
	}
	pattern := rest[0]

	login, err := o.targetLogin()
	if err != nil {
		return err
	}
	cfg := o.resolveConfig()

	sess := ldap.NewSession(cfg, newLogger(o.quiet))
	defer sess.Close()
	if err := sess.Connect(); err != nil {
		return err
	}
	if err := bindSession(sess, cfg, login); err != nil {
		return err
	}

	removed, err := sess.FindAndRemovePubkeys(login, pattern)
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		if !o.quiet {
			fmt.Printf("No keys matching %q found for %s\n", pattern, login)
		}
		return nil
	}
	if !o.quiet {
		for _, key := range removed {
			fmt.Printf("Removed key: %s\n", pubkey.DisplayName(key))
		}
	}
	return nil
}
