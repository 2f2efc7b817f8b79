/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: settings.go
Description: Settings and reference commands. Shows and updates the stored settings
and lists the supported attack types.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/akaylee-templater/pkg/settings"
	"github.com/kleascm/akaylee-templater/pkg/template"
	"github.com/spf13/cobra"
)

// RunSettingsShow prints every setting with its effective value
func RunSettingsShow(cmd *cobra.Command, args []string) error {
	store, st, err := LoadConfig(cmd)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "⚙️  Settings (%s)\n", store.Path())
	for _, key := range settings.Keys() {
		value, _ := st.Get(key)
		if value == "" {
			value = "(not set)"
		}
		fmt.Fprintf(w, "   %-15s %s\n", key, value)
	}
	return nil
}

// RunSettingsSet stores one setting
func RunSettingsSet(cmd *cobra.Command, args []string) error {
	store, st, err := LoadConfig(cmd)
	if err != nil {
		return err
	}

	if err := st.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := store.Save(st); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s = %s\n", args[0], args[1])
	return nil
}

// ListAttacks lists the attack types offered for payload positions
func ListAttacks(cmd *cobra.Command, args []string) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "🎯 Akaylee Templater - Attack Types")
	fmt.Fprintln(w, "===================================")
	fmt.Fprintln(w)

	for i, a := range template.AttackTypes() {
		fmt.Fprintf(w, "%d. %s", i+1, a)
		if a == template.DefaultAttackType {
			fmt.Fprint(w, " (default)")
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "   %s\n", a.Description())
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "✨ Requests with more than one marked position offer every attack type")
}
