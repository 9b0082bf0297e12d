package cli

import (
	"sort"
	"strconv"

	"github.com/dl-alexandre/driveshelf/internal/cache"
	"github.com/dl-alexandre/driveshelf/internal/types"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the local cache file",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached folders",
	Args:  cobra.NoArgs,
	RunE:  runCacheList,
}

func init() {
	cacheCmd.PersistentFlags().String("cache", "", "Path to the JSON cache file")
	cacheCmd.AddCommand(cacheListCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheList(cmd *cobra.Command, args []string) error {
	out := newOutputWriter(cmd)
	c := cache.NewStore(appConfig.CachePath, logger).Load()
	return out.WriteSuccess("cache.list", &cacheListing{Folders: c})
}

type cacheListing struct {
	Folders cache.Cache `json:"folders"`
}

func (l *cacheListing) AsTableRenderer() types.TableRenderer {
	return &cacheTable{c: l.Folders}
}

type cacheTable struct {
	c cache.Cache
}

func (t *cacheTable) Headers() []string {
	return []string{"ID", "Name", "Modified", "Files", "Summary"}
}

func (t *cacheTable) Rows() [][]string {
	ids := make([]string, 0, len(t.c))
	for id, entry := range t.c {
		if entry != nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := t.c[ids[i]], t.c[ids[j]]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return ids[i] < ids[j]
	})

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		entry := t.c[id]
		summary := "no"
		for _, f := range entry.Files {
			if f != nil && f.Content != nil {
				summary = "yes"
				break
			}
		}
		rows = append(rows, []string{
			truncate(id, 20),
			truncate(entry.Name, 40),
			entry.ModifiedTime,
			strconv.Itoa(len(entry.Files)),
			summary,
		})
	}
	return rows
}

func (t *cacheTable) EmptyMessage() string {
	return "No folders cached"
}
