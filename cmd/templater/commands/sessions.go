/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sessions.go
Description: Session commands. Lists, inspects, exports, creates and closes the
sessions kept in the workspace file.
*/

package commands

import (
	"fmt"
	"io"

	"github.com/kleascm/akaylee-templater/pkg/export"
	"github.com/kleascm/akaylee-templater/pkg/matcher"
	"github.com/kleascm/akaylee-templater/pkg/session"
	"github.com/kleascm/akaylee-templater/pkg/template"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunSessions lists the open sessions in the order they were opened
func RunSessions(cmd *cobra.Command, args []string) error {
	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	reg, err := LoadWorkspace(viper.GetString("workspace"), logger.GetLogger())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "📂 Akaylee Templater - Sessions")
	fmt.Fprintln(w, "===============================")
	if reg.Empty() {
		fmt.Fprintln(w, "   No open sessions")
		return nil
	}
	for i, s := range reg.List() {
		state := "empty"
		if s.HasTemplate {
			state = "template"
		}
		fmt.Fprintf(w, "%d. %s [%s]\n", i+1, s.Name, state)
	}
	return nil
}

// RunShow prints a summary of one session's template
func RunShow(cmd *cobra.Command, args []string) error {
	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	reg, err := LoadWorkspace(viper.GetString("workspace"), logger.GetLogger())
	if err != nil {
		return err
	}

	t, err := reg.Template(args[0])
	if err != nil {
		return err
	}
	printTemplate(cmd.OutOrStdout(), args[0], t)
	return nil
}

// RunExport writes a JSON snapshot of a session's template. The directory defaults
// to the template_path setting.
func RunExport(cmd *cobra.Command, args []string) error {
	_, st, err := LoadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	reg, err := LoadWorkspace(viper.GetString("workspace"), logger.GetLogger())
	if err != nil {
		return err
	}
	t, err := reg.Template(args[0])
	if err != nil {
		return err
	}

	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = st.TemplatePath
	}
	if dir == "" {
		return fmt.Errorf("no export directory: pass --dir or set template_path")
	}

	path, err := export.WriteSnapshot(dir, args[0], t)
	if err != nil {
		return err
	}
	logger.LogSession("exported", args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Session %q exported to %s\n", args[0], path)
	return nil
}

// RunNew opens a session holding a template with no request groups yet.
// The first request merged into it becomes its first group.
func RunNew(cmd *cobra.Command, args []string) error {
	_, st, err := LoadConfig(cmd)
	if err != nil {
		return err
	}

	return withWorkspace(cmd, func(reg *session.Registry) error {
		if _, err := reg.Create(args[0]); err != nil {
			return err
		}
		return reg.SetTemplate(args[0], template.New(st.Author, ""))
	}, "created", args[0])
}

// RunClose closes a session
func RunClose(cmd *cobra.Command, args []string) error {
	return withWorkspace(cmd, func(reg *session.Registry) error {
		return reg.Close(args[0])
	}, "closed", args[0])
}

// withWorkspace loads the workspace, applies fn and saves it back
func withWorkspace(cmd *cobra.Command, fn func(*session.Registry) error, event, name string) error {
	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	path := viper.GetString("workspace")
	reg, err := LoadWorkspace(path, logger.GetLogger())
	if err != nil {
		return err
	}
	if err := fn(reg); err != nil {
		return err
	}
	if err := SaveWorkspace(path, reg); err != nil {
		return err
	}

	logger.LogSession(event, name)
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Session %q %s (%d open)\n", name, event, reg.Len())
	return nil
}

func printTemplate(w io.Writer, name string, t template.Template) {
	fmt.Fprintf(w, "📄 %s\n", name)
	fmt.Fprintf(w, "   ID:       %s\n", t.ID)
	fmt.Fprintf(w, "   Name:     %s\n", t.Info.Name)
	fmt.Fprintf(w, "   Author:   %s\n", t.Info.Author)
	fmt.Fprintf(w, "   Severity: %s\n", t.Info.Severity)
	if t.TargetURL != "" {
		fmt.Fprintf(w, "   Target:   %s\n", t.TargetURL)
	}

	for i, g := range t.Requests {
		fmt.Fprintf(w, "   Group %d: %d request(s)\n", i+1, len(g.Raw))
		if g.Transform != nil {
			_, values := g.Transform.Placeholders()
			fmt.Fprintf(w, "      Payload: %s, parameters %v, values %q\n", g.Transform.AttackType, g.Transform.Parameters(), values)
		}
		for _, m := range g.Matchers {
			for _, r := range matcher.Compile(m) {
				switch r.Type {
				case matcher.RuleWord:
					fmt.Fprintf(w, "      Match %s in %s: %q\n", r.Type, r.Part, r.Words[0])
				case matcher.RuleStatus:
					fmt.Fprintf(w, "      Match %s: %v\n", r.Type, r.Status)
				}
			}
		}
		if g.MatchersCondition != "" {
			fmt.Fprintf(w, "      Condition: %s\n", g.MatchersCondition)
		}
	}
}
