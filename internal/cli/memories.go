package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/synapse/internal/brain"
	"github.com/lazypower/synapse/internal/engine"
	"github.com/lazypower/synapse/internal/store"
)

// openDB is a helper that opens the database for CLI commands.
func openDB() (*store.DB, error) {
	dbPath := os.Getenv("SYNAPSE_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath)
}

// currentProjectID derives the project key from the working directory,
// matching what the hook handlers send.
func currentProjectID() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "default"
	}
	id := strings.Trim(strings.ReplaceAll(filepath.ToSlash(cwd), "/", "-"), "-")
	if id == "" {
		return "default"
	}
	return id
}

// --- remember command ---

var (
	rememberProject  string
	rememberType     string
	rememberContent  string
	rememberRule     string
	rememberTags     []string
	rememberSeverity string
)

var rememberCmd = &cobra.Command{
	Use:   "remember [title]",
	Short: "Store a new memory",
	Long:  "Store a lesson, fact, or decision for the current project. Severity is inferred from the text when not given.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemember,
}

func runRemember(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	title := strings.Join(args, " ")
	severity := rememberSeverity
	if severity == "" {
		severity = engine.InferSeverity(title + " " + rememberContent)
	}
	project := rememberProject
	if project == "" {
		project = currentProjectID()
	}

	rec := &store.MemoryRecord{
		ProjectID: project,
		Type:      rememberType,
		Title:     title,
		Content:   rememberContent,
		Rule:      rememberRule,
		Tags:      rememberTags,
		Severity:  severity,
	}
	if err := db.CreateMemory(rec); err != nil {
		return err
	}

	fmt.Printf("remembered %s [%s/%s]\n", rec.ID, rec.Type, rec.Severity)
	return nil
}

// --- recall command ---

var (
	recallProject string
	recallTags    []string
)

var recallCmd = &cobra.Command{
	Use:   "recall [query]",
	Short: "Rank memories against a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecall,
}

func runRecall(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	project := recallProject
	if project == "" {
		project = currentProjectID()
	}

	state, _, err := db.LoadBrainState(project)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if state == nil {
		fresh := brain.Init(nil, time.Now())
		state = &fresh
	}

	records, err := db.ListMemories(project)
	if err != nil {
		return fmt.Errorf("list memories: %w", err)
	}

	query := strings.Join(args, " ")
	index := engine.BuildTagIndex(records)
	result := engine.RetrieveMemories(query, recallTags, records, index, *state, cfg.Engine)

	if len(result.Ranked) == 0 {
		fmt.Println("No matching memories.")
		return nil
	}

	for i, m := range result.Ranked {
		fmt.Printf("%d. [%.3f] %s [%s/%s]\n", i+1, m.Score, m.Record.Title, m.Record.Type, m.Record.Severity)
		if m.Record.Rule != "" {
			fmt.Printf("   rule: %s\n", m.Record.Rule)
		}
		if len(m.Record.Tags) > 0 {
			fmt.Printf("   tags: %s\n", strings.Join(m.Record.Tags, ", "))
		}
	}
	if result.Truncated {
		fmt.Println("(truncated to attention budget)")
	}
	return nil
}

// --- decayed command ---

var decayedProject string

var decayedCmd = &cobra.Command{
	Use:   "decayed",
	Short: "List memories past the decay threshold",
	RunE:  runDecayed,
}

func runDecayed(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	project := decayedProject
	if project == "" {
		project = currentProjectID()
	}

	state, recovered, err := db.LoadBrainState(project)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if recovered {
		fmt.Fprintln(os.Stderr, "warning: brain state was corrupt and has been reset")
	}
	if state == nil {
		fmt.Println("No session state for this project yet.")
		return nil
	}

	decayed := brain.FindDecayed(*state, cfg.Engine, time.Now())
	if len(decayed) == 0 {
		fmt.Println("Nothing has decayed.")
		return nil
	}

	for _, d := range decayed {
		title := d.ID
		if rec, err := db.GetMemory(d.ID); err == nil && rec != nil {
			title = rec.Title
		}
		fmt.Printf("%3dd  %2d hits  %s\n", d.DaysSince, d.AccessCount, title)
	}
	return nil
}

func init() {
	rememberCmd.Flags().StringVar(&rememberProject, "project", "", "Project id (default: current directory)")
	rememberCmd.Flags().StringVarP(&rememberType, "type", "t", "fact", "Memory type: pain, win, fact, decision, architecture")
	rememberCmd.Flags().StringVarP(&rememberContent, "content", "c", "", "Full memory content")
	rememberCmd.Flags().StringVarP(&rememberRule, "rule", "r", "", "Actionable takeaway")
	rememberCmd.Flags().StringSliceVar(&rememberTags, "tags", nil, "Comma-separated tags")
	rememberCmd.Flags().StringVarP(&rememberSeverity, "severity", "s", "", "Severity: low, medium, high (inferred when empty)")

	recallCmd.Flags().StringVar(&recallProject, "project", "", "Project id (default: current directory)")
	recallCmd.Flags().StringSliceVar(&recallTags, "tags", nil, "Recent tags to match alongside the query")

	decayedCmd.Flags().StringVar(&decayedProject, "project", "", "Project id (default: current directory)")
}
