package main

// Operator CLI for the versioned resume store.
//
//   resume-admin get
//   resume-admin set -file resume.json
//   resume-admin reset
//   resume-admin list -field experience
//   resume-admin entry -field experience -id 2
//   resume-admin add -field education -data '{"degree":"BSc",...}'
//   resume-admin update -field experience -id 2 -data '{"title":"Staff Eng"}'
//   resume-admin delete -field certifications -id 0
//   resume-admin history -limit 10
//   resume-admin preview -ref <sha>
//   resume-admin restore -ref <sha>
//
// The backend is selected by CONTENT_BACKEND (github, postgres, s3, fs,
// memory); see internal/shared/config for the full variable list.

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"resume-store/internal/shared/config"
	"resume-store/internal/shared/storage/content"
	contentfs "resume-store/internal/shared/storage/content/fs"
	contentgh "resume-store/internal/shared/storage/content/github"
	contentmem "resume-store/internal/shared/storage/content/memory"
	contentpg "resume-store/internal/shared/storage/content/pg"
	contents3 "resume-store/internal/shared/storage/content/s3"
	"resume-store/internal/shared/storage/db"
	"resume-store/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	ctx := context.Background()

	backend, cleanup, err := buildBackend(ctx, cfg)
	if err != nil {
		log.Printf("backend init failed: %v", err)
		os.Exit(1)
	}
	defer cleanup()

	svc := store.NewService(backend, cfg.ResumePath, cfg.BackupDir, cfg.BackupRetention)

	if err := run(ctx, svc, os.Args[1], os.Args[2:]); err != nil {
		log.Printf("%s failed: %v", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *store.Service, command string, args []string) error {
	switch command {
	case "get":
		doc, rev, err := svc.ReadDocument(ctx)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"revision": rev, "data": doc})

	case "set":
		fs := flag.NewFlagSet("set", flag.ExitOnError)
		file := fs.String("file", "", "path to a JSON file with the full document")
		fs.Parse(args)
		if *file == "" {
			return fmt.Errorf("-file is required")
		}
		raw, err := os.ReadFile(*file)
		if err != nil {
			return err
		}
		res, err := svc.WriteDocument(ctx, raw)
		if err != nil {
			return err
		}
		return printJSON(res)

	case "reset":
		res, err := svc.ResetDocument(ctx)
		if err != nil {
			return err
		}
		return printJSON(res)

	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		field := fs.String("field", "", "experience, education or certifications")
		fs.Parse(args)
		entries, err := svc.ListField(ctx, *field)
		if err != nil {
			return err
		}
		return printJSON(entries)

	case "entry":
		fs := flag.NewFlagSet("entry", flag.ExitOnError)
		field := fs.String("field", "", "experience, education or certifications")
		id := fs.Int("id", -1, "entry id (experience) or index")
		fs.Parse(args)
		entry, err := svc.GetFieldEntry(ctx, *field, *id)
		if err != nil {
			return err
		}
		return printJSON(entry)

	case "add":
		fs := flag.NewFlagSet("add", flag.ExitOnError)
		field := fs.String("field", "", "experience, education or certifications")
		data := fs.String("data", "", "entry JSON")
		fs.Parse(args)
		entry, res, err := svc.AddFieldEntry(ctx, *field, json.RawMessage(*data))
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"data": entry, "commit": res.CommitID, "revision": res.Revision})

	case "update":
		fs := flag.NewFlagSet("update", flag.ExitOnError)
		field := fs.String("field", "", "experience, education or certifications")
		id := fs.Int("id", -1, "entry id (experience) or index")
		data := fs.String("data", "", "patch JSON")
		fs.Parse(args)
		res, err := svc.UpdateFieldEntry(ctx, *field, *id, json.RawMessage(*data))
		if err != nil {
			return err
		}
		return printJSON(res)

	case "delete":
		fs := flag.NewFlagSet("delete", flag.ExitOnError)
		field := fs.String("field", "", "experience, education or certifications")
		id := fs.Int("id", -1, "entry id (experience) or index")
		fs.Parse(args)
		res, err := svc.DeleteFieldEntry(ctx, *field, *id)
		if err != nil {
			return err
		}
		return printJSON(res)

	case "history":
		fs := flag.NewFlagSet("history", flag.ExitOnError)
		limit := fs.Int("limit", 10, "max revisions to list")
		fs.Parse(args)
		revs, err := svc.ListHistory(ctx, *limit)
		if err != nil {
			return err
		}
		return printJSON(revs)

	case "preview":
		fs := flag.NewFlagSet("preview", flag.ExitOnError)
		ref := fs.String("ref", "", "revision ref from history")
		fs.Parse(args)
		doc, err := svc.PreviewAtRevision(ctx, *ref)
		if err != nil {
			return err
		}
		return printJSON(doc)

	case "restore":
		fs := flag.NewFlagSet("restore", flag.ExitOnError)
		ref := fs.String("ref", "", "revision ref from history")
		fs.Parse(args)
		res, err := svc.RestoreFromRevision(ctx, *ref)
		if err != nil {
			return err
		}
		return printJSON(res)

	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// buildBackend constructs the configured content backend. Dependencies are
// wired here once and injected; no package keeps client state of its own.
func buildBackend(ctx context.Context, cfg config.Config) (content.Backend, func(), error) {
	nop := func() {}
	switch cfg.Backend {
	case "github":
		backend, err := contentgh.New(ctx, contentgh.Config{
			Token:   cfg.GitHubToken,
			Owner:   cfg.GitHubOwner,
			Repo:    cfg.GitHubRepo,
			Branch:  cfg.GitHubBranch,
			BaseURL: cfg.GitHubBaseURL,
		})
		return backend, nop, err

	case "postgres":
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultCLIOptions()))
		if err != nil {
			return nil, nop, err
		}
		return contentpg.New(sqlDB, cfg.CommitAuthor), func() { sqlDB.Close() }, nil

	case "s3":
		backend, err := contents3.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		return backend, nop, err

	case "memory":
		return contentmem.New(cfg.CommitAuthor), nop, nil

	default:
		return contentfs.New(cfg.FSDir, cfg.CommitAuthor), nop, nil
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: resume-admin <get|set|reset|list|entry|add|update|delete|history|preview|restore> [flags]")
}
