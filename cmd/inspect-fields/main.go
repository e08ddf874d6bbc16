// Command inspect-fields lists the custom fields and tags of the configured
// ActiveCampaign account, so editors know which acf_<id> names to use in
// their forms, and stores the inventory as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ignite/formsync/internal/activecampaign"
	"github.com/ignite/formsync/internal/bootstrap"
	"github.com/ignite/formsync/internal/config"
	"github.com/ignite/formsync/internal/fieldexport"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	out := flag.String("out", "", "override the export target: a local path, or s3 to use the configured bucket")
	noExport := flag.Bool("no-export", false, "only print the table")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.ActiveCampaign.APIURL == "" || cfg.ActiveCampaign.APIKey == "" {
		log.Fatal("ACTIVECAMPAIGN_API_URL and ACTIVECAMPAIGN_API_KEY are required")
	}
	bootstrap.SetupLogging(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := activecampaign.NewClient(activecampaign.Config{
		BaseURL:    cfg.ActiveCampaign.APIURL,
		APIKey:     cfg.ActiveCampaign.APIKey,
		Timeout:    cfg.ActiveCampaign.Timeout(),
		MaxRetries: cfg.ActiveCampaign.MaxRetries,
	})

	inv, err := collect(ctx, client, accountName(cfg.ActiveCampaign.APIURL), time.Now())
	if err != nil {
		log.Fatalf("inspect: %v", err)
	}
	if err := inv.WriteTable(os.Stdout); err != nil {
		log.Fatalf("print: %v", err)
	}
	if *noExport {
		return
	}

	writer, err := exportWriter(ctx, cfg.Export, *out)
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	loc, err := writer.Write(ctx, inv)
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Printf("\n%d fields, %d tags written to %s\n", len(inv.Fields), len(inv.Tags), loc)
}

type lister interface {
	ListFields(ctx context.Context) ([]activecampaign.RemoteField, error)
	ListTags(ctx context.Context) ([]activecampaign.RemoteTag, error)
}

func collect(ctx context.Context, c lister, account string, now time.Time) (*fieldexport.Inventory, error) {
	fields, err := c.ListFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	tags, err := c.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return fieldexport.Build(account, fields, tags, now), nil
}

// accountName is the first label of the API host: demo.api-us1.com → demo.
func accountName(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Hostname() == "" {
		return apiURL
	}
	name, _, _ := strings.Cut(u.Hostname(), ".")
	return name
}

func exportWriter(ctx context.Context, cfg config.ExportConfig, override string) (fieldexport.Writer, error) {
	switch {
	case override == "s3":
		cfg.Type = "s3"
	case override != "":
		return fieldexport.FileWriter{Path: override}, nil
	}
	if cfg.Type == "s3" {
		return fieldexport.NewS3Writer(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region)
	}
	return fieldexport.FileWriter{Path: cfg.LocalPath}, nil
}
