package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"pagescribe/internal/app"
	"pagescribe/internal/automation"
	"pagescribe/internal/config"
	"pagescribe/internal/pipeline"
)

func cliAutomation(title, fields, dest string) automation.Descriptor {
	return automation.Descriptor{
		ID:            "cli",
		OwnerID:       "cli",
		Title:         title,
		ExtractFields: fields,
		Destination:   automation.Destination{Name: dest},
		Active:        true,
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	cfg, err := config.Load(os.Getenv("PS_CONFIG"))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	switch cmd {
	case "process":
		runProcess(cfg, os.Args[2:])
	case "doctor":
		doctor(cfg)
	default:
		usage()
	}
}

// runProcess pushes one capture through the pipeline from the command
// line, reading the page text from a file or stdin.
func runProcess(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	url := fs.String("url", "", "source page url")
	title := fs.String("title", "", "automation title / intent")
	fields := fs.String("fields", "", "comma-separated fields to extract")
	dest := fs.String("dest", "captures.txt", "destination object name")
	file := fs.String("file", "-", "page text file, - for stdin")
	_ = fs.Parse(args)

	if *url == "" || *title == "" || *fields == "" {
		fmt.Println("process needs -url, -title and -fields")
		fs.Usage()
		os.Exit(2)
	}

	text, err := readInput(*file)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	appInstance, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("app init error: %v", err)
	}
	defer appInstance.Close()

	auto := cliAutomation(*title, *fields, *dest)
	content := pipeline.Content{
		URL:       *url,
		Text:      text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Kind:      pipeline.KindFullArticle,
	}
	result, err := appInstance.Coordinator.ProcessContent(ctx, content, auto, "cli")
	if err != nil {
		log.Fatalf("process failed: %v", err)
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func doctor(cfg config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	checks := []struct {
		Name string
		Fn   func() error
	}{
		{"database", func() error { return pingDatabase(ctx, cfg.Database.DSN) }},
		{"redis", func() error { return pingRedis(ctx, cfg.Redis.URL) }},
		{"ollama", func() error { return pingHTTP(cfg.LLM.OllamaURL) }},
		{"server", func() error { return pingHTTP(localHTTPBase(cfg) + "/healthz") }},
	}
	for _, check := range checks {
		if err := check.Fn(); err != nil {
			fmt.Printf("%s: FAIL (%v)\n", check.Name, err)
			continue
		}
		fmt.Printf("%s: OK\n", check.Name)
	}
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func pingDatabase(ctx context.Context, dsn string) error {
	if dsn == "" {
		return fmt.Errorf("no dsn configured")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}

func pingRedis(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("no redis url configured")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return err
	}
	client := redis.NewClient(opt)
	defer client.Close()
	return client.Ping(ctx).Err()
}

func pingHTTP(url string) error {
	if url == "" {
		return fmt.Errorf("no url configured")
	}
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func localHTTPBase(cfg config.Config) string {
	addr := cfg.HTTP.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}

func usage() {
	fmt.Println("Usage: pagescribe <process|doctor>")
}
