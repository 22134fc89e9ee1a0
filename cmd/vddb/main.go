package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vddb/vddb/internal/config"
	"github.com/vddb/vddb/internal/engine"
	"github.com/vddb/vddb/internal/metrics"
	"github.com/vddb/vddb/internal/query"
	"github.com/vddb/vddb/internal/schema"
	"github.com/vddb/vddb/internal/sql"
	"github.com/vddb/vddb/internal/storage"
	"github.com/vddb/vddb/internal/types"
)

// statementComplete reports whether buf holds a ';' outside single quotes.
func statementComplete(buf string) bool {
	inQuote := false
	for _, r := range buf {
		if r == '\'' {
			inQuote = !inQuote
			continue
		}
		if r == ';' && !inQuote {
			return true
		}
	}
	return false
}

func compactOneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isMetaCommand(line string) bool {
	return strings.HasPrefix(line, "\\") || line == "quit" || line == "exit"
}

// resultHeader labels the output columns of a row-producing statement.
func resultHeader(q query.Query, width int) []string {
	switch n := q.(type) {
	case *query.Select:
		if len(n.Columns) > 0 {
			return n.Columns
		}
	case *query.Join:
		return n.Columns
	case *query.SelectAggregate:
		hdr := make([]string, len(n.Aggregates))
		for i, agg := range n.Aggregates {
			col := agg.Column
			if col == "" {
				col = "*"
			}
			hdr[i] = fmt.Sprintf("%s(%s)", agg.Fn, col)
		}
		return hdr
	}
	hdr := make([]string, width)
	for i := range hdr {
		hdr[i] = fmt.Sprintf("col%d", i+1)
	}
	return hdr
}

func printRows(hdr []string, rows [][]types.Value) {
	if len(hdr) == 0 {
		fmt.Println("OK")
		return
	}

	widths := make([]int, len(hdr))
	for i, c := range hdr {
		widths[i] = len(c)
	}
	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(hdr))
		for i := range hdr {
			s := "NULL"
			if i < len(row) {
				s = row[i].String()
			}
			cells[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	printRow := func(values []string) {
		for i := range hdr {
			if i > 0 {
				fmt.Print(" | ")
			}
			fmt.Print(padRight(values[i], widths[i]))
		}
		fmt.Println()
	}

	printRow(hdr)
	for i := range hdr {
		if i > 0 {
			fmt.Print("-+-")
		}
		fmt.Print(strings.Repeat("-", widths[i]))
	}
	fmt.Println()
	for _, row := range cells {
		printRow(row)
	}
	fmt.Printf("(%d rows)\n", len(rows))
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".vddb_history"
	}
	return filepath.Join(home, ".vddb_history")
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type session struct {
	eng         *engine.Engine
	defaultComp schema.Compression
}

// exec parses and runs one statement. Columns created without an explicit
// compression choice inherit the configured default.
func (s *session) exec(stmt string) ([]string, [][]types.Value, error) {
	q, err := sql.Parse(stmt)
	if err != nil {
		return nil, nil, err
	}
	if ct, ok := q.(*query.CreateTable); ok {
		for i := range ct.Columns {
			if ct.Columns[i].Compression == schema.CompressionNone {
				ct.Columns[i].Compression = s.defaultComp
			}
		}
	}
	rows, err := s.eng.Execute(q)
	if err != nil {
		return nil, nil, err
	}
	switch q.(type) {
	case *query.Select, *query.SelectAggregate, *query.Join:
		return resultHeader(q, rowWidth(rows)), rows, nil
	default:
		return nil, nil, nil
	}
}

func rowWidth(rows [][]types.Value) int {
	if len(rows) == 0 {
		return 0
	}
	return len(rows[0])
}

func run() error {
	var (
		cfgPath    = flag.String("config", "", "config file (yaml); defaults apply when empty")
		dataDir    = flag.String("data", "", "data directory (overrides config)")
		histPath   = flag.String("history", defaultHistoryPath(), "history file path")
		oneShotSQL = flag.String("c", "", "execute one statement and exit (must end with ';')")
	)
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return err
		}
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(log)

	defaultComp, err := schema.ParseCompression(cfg.DefaultCompression)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}
	store, err := storage.NewManager(cfg.DataDir,
		storage.WithCacheSize(cfg.ColumnCache),
		storage.WithLogger(log),
	)
	if err != nil {
		return err
	}

	met := metrics.New(prometheus.NewRegistry())
	eng, err := engine.New(store,
		engine.WithWorkers(cfg.Workers),
		engine.WithLogger(log),
		engine.WithMetrics(met),
	)
	if err != nil {
		return err
	}
	defer eng.Close()

	sess := &session{eng: eng, defaultComp: defaultComp}

	if strings.TrimSpace(*oneShotSQL) != "" {
		hdr, rows, err := sess.exec(*oneShotSQL)
		if err != nil {
			return err
		}
		printRows(hdr, rows)
		return nil
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "vddb> ",
		HistoryFile:     *histPath,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer func() { _ = rl.Close() }()

	fmt.Printf("vddb: data dir %s\n", cfg.DataDir)
	fmt.Println("type \\help for help")

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl+C drops the statement in progress.
			if buf.Len() > 0 {
				buf.Reset()
				rl.SetPrompt("vddb> ")
				continue
			}
			fmt.Println("^C")
			continue
		}
		if err != nil {
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && isMetaCommand(line) {
			switch line {
			case "\\q", "quit", "exit":
				return nil
			case "\\tables":
				for _, name := range store.Catalog().Names() {
					fmt.Println(name)
				}
			case "\\help":
				fmt.Println(`meta commands:
  \q | quit | exit       quit
  \tables                list tables
  \help                  show help

sql:
  end statements with ';' (multiline input waits until then)
  CREATE TABLE / DROP TABLE / INSERT / DELETE / SELECT
  aggregates COUNT SUM AVG MIN MAX, JOIN ... ON, WHERE with AND OR NOT`)
			default:
				fmt.Printf("unknown command: %s\n", line)
			}
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)

		if !statementComplete(buf.String()) {
			rl.SetPrompt("...> ")
			continue
		}

		stmt := strings.TrimSpace(buf.String())
		buf.Reset()
		rl.SetPrompt("vddb> ")
		_ = rl.SaveHistory(compactOneLine(stmt))

		hdr, rows, err := sess.exec(stmt)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		printRows(hdr, rows)
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vddb: %v\n", err)
		os.Exit(1)
	}
}
