// Command capsulenv-pack is the packaging CLI: it reads a textual
// capsule, bundles its referenced files, optionally encrypts the
// serialized payload, and appends it to a per-target runtime image to
// produce a self-extracting executable.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/capsulenv/capsulenv/internal/packager"
	"github.com/capsulenv/capsulenv/internal/runtimeenv"
	"github.com/capsulenv/capsulenv/internal/secretprompt"
)

var version = "dev"

func main() {
	_ = runtimeenv.LoadDotEnv(".capsulenv.env")

	var (
		target     string
		output     string
		runtimeDir string
		encrypt    bool
	)

	root := &cobra.Command{
		Use:           "capsulenv-pack <capsule-file>",
		Short:         "Package a textual capsule into a self-extracting executable",
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := packager.Options{
				SourcePath:   args[0],
				TargetTriple: target,
				OutputPath:   output,
				RuntimeDir:   runtimeenv.RuntimeDir(runtimeDir),
			}
			if encrypt {
				password, err := secretprompt.Read(os.Stdin, os.Stderr)
				if err != nil {
					return err
				}
				opts.Password = password
				opts.HasPassword = true
			}

			outPath, err := packager.Package(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), outPath)
			return nil
		},
	}

	root.Flags().StringVar(&target, "target", "x86_64-linux", "target triple for the embedded runtime image")
	root.Flags().StringVar(&output, "output", "", "output path (default: <capsule-dir>/<stem>-<target><ext>)")
	root.Flags().StringVar(&runtimeDir, "runtime-dir", "", "directory of prebuilt per-target runtime binaries (default: $CAPSULENV_RUNTIME_DIR)")
	root.Flags().BoolVar(&encrypt, "encrypt", false, "prompt for a password and encrypt the payload")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
