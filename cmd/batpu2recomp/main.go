package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/batpu2/recomp/pkg/cfg"
	"github.com/batpu2/recomp/pkg/mcfile"
	"github.com/batpu2/recomp/pkg/recomp"
	"github.com/batpu2/recomp/pkg/report"
)

func main() {
	var headless bool

	rootCmd := &cobra.Command{
		Use:   "batpu2recomp <input.mc> <output.ll>",
		Short: "Static recompiler — translate BatPU-2 machine code into LLVM IR",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath, outputPath := args[0], args[1]

			code, err := mcfile.Load(inputPath)
			if err != nil {
				return errors.Wrap(err, "load")
			}

			blocks := cfg.Analyze(code)

			out, err := recomp.Recomp(code, recomp.Options{Name: inputPath, Headless: headless})
			if err != nil {
				return errors.Wrap(err, "translate")
			}

			if err := os.WriteFile(outputPath, []byte(out), 0o644); err != nil {
				return errors.Wrapf(err, "write %s", outputPath)
			}

			cmd.Print(report.Build(code, blocks).String())
			return nil
		},
	}
	rootCmd.Flags().BoolVar(&headless, "headless", false, "Emit the headless runtime surface (init_headless/deinit_headless, no graphics/controller calls)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
