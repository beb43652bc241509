// Command adaptivehash hashes and verifies passwords with cost parameters
// sized to the memory available to the process.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/hasbyte1/go-adaptive-hashing/hashing"
	"github.com/hasbyte1/go-adaptive-hashing/memlimit"
)

var errMismatch = errors.New("password does not match")

func newRootCmd() *cobra.Command {
	v := newViper()
	var configPath string

	root := &cobra.Command{
		Use:   "adaptivehash",
		Short: "Memory-adaptive password hashing",
		Long: `adaptivehash hashes passwords with Argon2id, Argon2i, or bcrypt, sizing
the Argon2 cost parameters to the memory the process can spare.

Every flag can also be set through an ADAPTIVEHASH_ environment variable
(e.g. ADAPTIVEHASH_MEMORY_LIMIT=512M) or a config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfigFile(v, configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (yaml, json, toml)")
	addConfigFlags(root.PersistentFlags())
	if err := bindConfigFlags(v, root.PersistentFlags()); err != nil {
		panic(err)
	}

	root.AddCommand(newHashCmd(v), newVerifyCmd(v), newNeedsRehashCmd(v), newParamsCmd(v))
	return root
}

func newHashCmd(v *viper.Viper) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash a password",
		Long:  `Hash a password read from --password, the terminal, or stdin.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := newHasher(v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			hash, err := h.HashPassword(cmd.Context(), pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password to hash (default: prompt or stdin)")
	return cmd
}

func newVerifyCmd(v *viper.Viper) *cobra.Command {
	var password, hash string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a password against a hash",
		Long:  `Check a password against a hash.  Exits with status 1 on mismatch.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := newHasher(v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			ok, err := h.Verify(pw, hash)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			if !ok {
				return errMismatch
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password to check (default: prompt or stdin)")
	cmd.Flags().StringVarP(&hash, "hash", "H", "", "Stored hash (required)")
	_ = cmd.MarkFlagRequired("hash")
	return cmd
}

func newNeedsRehashCmd(v *viper.Viper) *cobra.Command {
	var hash string
	cmd := &cobra.Command{
		Use:   "needs-rehash",
		Short: "Report whether a hash differs from what would be produced now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := newHasher(v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			needs, err := h.NeedsRehash(hash)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), needs)
			return nil
		},
	}
	cmd.Flags().StringVarP(&hash, "hash", "H", "", "Stored hash (required)")
	_ = cmd.MarkFlagRequired("hash")
	return cmd
}

func newParamsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Show the parameters a hash made now would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := newHasher(v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			sel, err := h.Select()
			if err != nil {
				return err
			}
			printSelection(cmd.OutOrStdout(), sel)
			return nil
		},
	}
}

func printSelection(w io.Writer, sel hashing.Selection) {
	fmt.Fprintf(w, "memory limit:  %s\n", memlimit.Format(sel.MemoryLimit))
	fmt.Fprintf(w, "used memory:   %s\n", memlimit.Format(sel.UsedMemory))
	fmt.Fprintf(w, "available:     %s\n", memlimit.Format(sel.AvailableBytes))
	fmt.Fprintf(w, "memory cost:   %s\n", memlimit.FormatKiB(sel.MemoryKiB))
	fmt.Fprintf(w, "algorithm:     %s\n", sel.Algorithm)
	fmt.Fprintf(w, "iterations:    %d\n", sel.Iterations)
	fmt.Fprintf(w, "threads:       %d\n", sel.Threads)
}

// readPassword returns flagValue when set.  Otherwise it prompts without
// echo on a terminal, or reads the first line of stdin.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errMismatch) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
