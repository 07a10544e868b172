package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	signify "github.com/sug0/git-signify"
	"github.com/sug0/git-signify/sigrefs"
)

func newListSignaturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list-signatures",
		Short: "List signatures stored in this repository",
		Args:  cobra.NoArgs,
	}
	outputJSON := cmd.Flags().Bool("json", false, "output JSON")
	remote := cmd.Flags().StringP("remote", "R", "", "list signatures on the given remote instead")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}

		var signers sigrefs.Signers
		if *remote != "" {
			signers, err = signify.ListRemoteSignatures(repo, *remote)
		} else {
			signers, err = signify.ListSignatures(repo)
		}
		if err != nil {
			return err
		}

		if *outputJSON {
			return printSignersJSON(signers)
		}
		printSignersHuman(signers)
		return nil
	}
	return cmd
}

func printSignersHuman(signers sigrefs.Signers) {
	for _, object := range signers.SignedObjects() {
		fmt.Printf("Signers of %s:\n", object)
		for _, signer := range signers[object] {
			fmt.Printf("  - %s\n", signer)
		}
	}
}

func printSignersJSON(signers sigrefs.Signers) error {
	out := make(map[string][]string, len(signers))
	for _, object := range signers.SignedObjects() {
		hexes := make([]string, len(signers[object]))
		for i, signer := range signers[object] {
			hexes[i] = signer.String()
		}
		out[object.String()] = hexes
	}
	return json.NewEncoder(os.Stdout).Encode(out)
}
