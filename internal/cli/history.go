package cli

import (
	"strconv"
	"time"

	"github.com/dl-alexandre/driveshelf/internal/history"
	"github.com/dl-alexandre/driveshelf/internal/types"
	"github.com/dl-alexandre/driveshelf/internal/utils"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to show (0 for all)")
	historyCmd.Flags().String("history", "", "Path to the sqlite run history")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	out := newOutputWriter(cmd)

	if appConfig.HistoryPath == "" {
		return handleError(out, "history", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidConfig,
			"run history is disabled (set DRIVESHELF_HISTORY_PATH or history_path)").Build()))
	}

	db, err := history.Open(appConfig.HistoryPath)
	if err != nil {
		return handleError(out, "history", err)
	}
	defer db.Close()

	runs, err := db.List(cmd.Context(), historyLimit)
	if err != nil {
		return handleError(out, "history", err)
	}
	if runs == nil {
		runs = []history.Run{}
	}
	return out.WriteSuccess("history", &runList{Runs: runs})
}

type runList struct {
	Runs []history.Run `json:"runs"`
}

func (l *runList) AsTableRenderer() types.TableRenderer {
	return l
}

func (l *runList) Headers() []string {
	return []string{"Started", "Status", "Rescanned", "Unchanged", "Files", "Errors", "Duration"}
}

func (l *runList) Rows() [][]string {
	rows := make([][]string, 0, len(l.Runs))
	for _, r := range l.Runs {
		rows = append(rows, []string{
			r.StartedAt.Format(time.RFC3339),
			r.Status,
			strconv.Itoa(r.Rescanned),
			strconv.Itoa(r.Unchanged),
			strconv.Itoa(r.FilesRecorded),
			strconv.Itoa(r.ListingErrors + r.ContentErrors),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
		})
	}
	return rows
}

func (l *runList) EmptyMessage() string {
	return "No sync runs recorded"
}
