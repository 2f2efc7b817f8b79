/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: resolve.go
Description: Resolve and apply commands. Resolve lists the actions a selection
offers; apply invokes one of them against the workspace and saves the result.
*/

package commands

import (
	"fmt"
	"io"

	"github.com/kleascm/akaylee-templater/pkg/actions"
	"github.com/kleascm/akaylee-templater/pkg/logging"
	"github.com/kleascm/akaylee-templater/pkg/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunResolve prints the numbered actions available for a selection file
func RunResolve(cmd *cobra.Command, args []string) error {
	_, st, err := LoadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	list, _, err := resolveFromFlags(cmd, newResolver(st, logger), logger)
	if err != nil {
		return err
	}

	printActions(cmd.OutOrStdout(), list)
	return nil
}

// RunApply invokes one action of a selection and saves the workspace
func RunApply(cmd *cobra.Command, args []string) error {
	_, st, err := LoadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	list, reg, err := resolveFromFlags(cmd, newResolver(st, logger), logger)
	if err != nil {
		return err
	}

	index, err := cmd.Flags().GetInt("action")
	if err != nil {
		return err
	}
	outcome, action, err := Apply(list, index, logger)
	if err != nil {
		return err
	}

	if err := SaveWorkspace(viper.GetString("workspace"), reg); err != nil {
		return err
	}

	printOutcome(cmd.OutOrStdout(), action, outcome)
	return nil
}

// resolveFromFlags reads the selection and workspace named by the flags and resolves
func resolveFromFlags(cmd *cobra.Command, resolver *actions.Resolver, logger *logging.Logger) ([]actions.Action, *session.Registry, error) {
	path, err := cmd.Flags().GetString("selection")
	if err != nil {
		return nil, nil, err
	}
	sel, err := ReadSelection(path)
	if err != nil {
		return nil, nil, err
	}

	reg, err := LoadWorkspace(viper.GetString("workspace"), logger.GetLogger())
	if err != nil {
		return nil, nil, err
	}

	list, err := resolver.Resolve(sel, reg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve selection: %w", err)
	}

	view := string(sel.View)
	if sel.Multi() {
		view = "multi"
	}
	logger.LogResolution(len(sel.Targets), view, len(list), map[string]interface{}{
		"tool":     sel.Tool,
		"sessions": reg.Len(),
	})
	return list, reg, nil
}

// Apply invokes the action at 1-based index and logs its effect
func Apply(list []actions.Action, index int, logger *logging.Logger) (*actions.Outcome, actions.Action, error) {
	if index < 1 || index > len(list) {
		return nil, actions.Action{}, fmt.Errorf("action %d out of range, %d available", index, len(list))
	}

	action := list[index-1]
	outcome, err := action.Invoke()
	if err != nil {
		return nil, action, fmt.Errorf("failed to apply %q: %w", action.Title(), err)
	}

	switch action.Kind {
	case actions.KindGenerate:
		logger.LogSession("opened", outcome.Session)
	default:
		kind := string(session.KindRequests)
		if action.Kind == actions.KindAddMatcher {
			kind = string(session.KindMatcher)
		}
		logger.LogMerge(outcome.Session, kind, len(outcome.Template.Requests), outcome.Warning != nil)
	}
	return outcome, action, nil
}

func printActions(w io.Writer, list []actions.Action) {
	fmt.Fprintln(w, "🧩 Akaylee Templater - Available Actions")
	fmt.Fprintln(w, "========================================")
	if len(list) == 0 {
		fmt.Fprintln(w, "   (none)")
		return
	}
	for i, a := range list {
		fmt.Fprintf(w, "%d. %s\n", i+1, a.Title())
		if a.AttackType != "" {
			fmt.Fprintf(w, "   Attack: %s\n", a.AttackType.Description())
		}
	}
}

func printOutcome(w io.Writer, action actions.Action, outcome *actions.Outcome) {
	if outcome.Warning != nil {
		fmt.Fprintf(w, "⚠️  %s (%d request groups)\n", outcome.Warning.Message, outcome.Warning.GroupCount)
	}
	fmt.Fprintf(w, "✅ %s\n", action.Title())
	fmt.Fprintf(w, "   Session:  %s\n", outcome.Session)
	fmt.Fprintf(w, "   Template: %s (%s)\n", outcome.Template.ID, outcome.Template.Info.Name)
	fmt.Fprintf(w, "   Groups:   %d\n", len(outcome.Template.Requests))
}
