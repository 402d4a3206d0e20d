package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/memsynth/internal/parser"
	"github.com/raphaelgruber/memsynth/internal/service"
)

const statusTimeLayout = "2006-01-02 15:04"

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show synthesis state, backlog and the current memory document",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	theme := themeFor(out)
	settings := loadSettings()

	st, err := openStore()
	if err != nil {
		return err
	}

	state, err := st.LoadState()
	if err != nil {
		logger.Warn("ignoring unreadable synthesis state", "error", err)
		state = nil
	}
	var since *time.Time
	if state != nil {
		since = &state.LastSynthesis
	}
	total, err := st.Backlog(ctx, nil)
	if err != nil {
		return fmt.Errorf("count sessions: %w", err)
	}
	pending, err := st.Backlog(ctx, since)
	if err != nil {
		return fmt.Errorf("count sessions: %w", err)
	}

	row := func(label, value string) {
		fmt.Fprintf(out, "%-16s %s\n", label+":", value)
	}

	fmt.Fprintln(out, theme.headingStyle().Render("Memory synthesis"))
	row("Home", cfg.HomeDir)
	if settings.Enabled {
		row("Synthesis", theme.successStyle().Render("enabled"))
	} else {
		row("Synthesis", theme.warningStyle().Render("disabled"))
	}
	row("Interval", settings.SynthesisInterval.String())

	if state == nil {
		row("Last synthesis", theme.hintStyle().Render("never"))
	} else {
		row("Last synthesis", state.LastSynthesis.Local().Format(statusTimeLayout))
		due := service.NextDue(state, settings.SynthesisInterval)
		if due.After(time.Now()) {
			row("Next due", due.Local().Format(statusTimeLayout))
		} else {
			row("Next due", theme.warningStyle().Render("now"))
		}
	}
	row("Sessions", fmt.Sprintf("%d stored, %d pending", total, pending))

	fmt.Fprintln(out)
	content, err := st.ReadDocument()
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, theme.hintStyle().Render("No memory document yet"))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read memory document: %w", err)
	}

	doc, err := parser.ParseMemoryDocument(content)
	if err != nil {
		fmt.Fprintf(out, "%s %s\n", st.DocumentPath(), theme.warningStyle().Render("(not a memory document)"))
		return nil
	}
	fmt.Fprintln(out, theme.headingStyle().Render(st.DocumentPath()))
	for _, section := range doc.Sections {
		fmt.Fprintf(out, "  %-22s %d\n", section.Heading, len(section.Items))
	}
	fmt.Fprintf(out, "  %-22s %d\n", "Total", doc.Count())
	return nil
}
