package analytics

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// Query keys
const (
	QueryTransactionsAnalytics = "transactions/get-transactions-analytics"
	QueryActiveTraders         = "transactions/get-active-traders"
	QuerySwapCount             = "transactions/get-swap-count"
	QuerySwapVolume            = "transactions/get-swap-volume"
	QueryMainLeaderboard       = "leaderboard/main-leaderboard"
	QueryUserData              = "leaderboard/user-data"
	QueryUserRank              = "leaderboard/user-rank"
	QueryNextRankThreshold     = "leaderboard/next-rank-threshold"
	QueryUserSwapVolume        = "users/get-user-swap-volume"
)

//go:embed sql
var sqlFiles embed.FS

// aliases map keys that reuse another query's text
var aliases = map[string]string{
	QueryActiveTraders: QueryTransactionsAnalytics,
}

var registry = mustLoadRegistry()

func mustLoadRegistry() map[string]string {
	queries := make(map[string]string)
	err := fs.WalkDir(sqlFiles, "sql", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return err
		}
		data, err := sqlFiles.ReadFile(path)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(strings.TrimPrefix(path, "sql/"), ".sql")
		queries[key] = strings.TrimSpace(string(data))
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("failed to load embedded SQL: %v", err))
	}
	for alias, target := range aliases {
		queries[alias] = queries[target]
	}
	return queries
}

// LoadSQL returns the SQL text registered under key
func LoadSQL(key string) (string, error) {
	sql, ok := registry[key]
	if !ok || sql == "" {
		return "", fmt.Errorf("unknown SQL query key: %s. Available keys: %s", key, strings.Join(Keys(), ", "))
	}
	return sql, nil
}

// Keys lists the registered query keys in order
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
