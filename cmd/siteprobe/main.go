// Command siteprobe checks a deployed site API from the command line.
//
//	siteprobe check -url http://localhost:8000/api -url https://example.com/api
//	siteprobe login -url http://localhost:8000/api -user suraj -pass ...
//	siteprobe pick  -url A -url B -write web/config.yml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/heliosensium/site/internal/probe"
)

const defaultURL = "http://localhost:8000/api"

type urlList []string

func (u *urlList) String() string { return strings.Join(*u, ",") }

func (u *urlList) Set(v string) error {
	*u = append(*u, strings.TrimSpace(v))
	return nil
}

func (u urlList) orDefault() []string {
	if len(u) == 0 {
		return []string{defaultURL}
	}
	return u
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "check":
		err = runCheck(os.Args[2:])
	case "login":
		err = runLogin(os.Args[2:])
	case "pick":
		err = runPick(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: siteprobe <command> [flags]

commands:
  check   probe the blog, health and auth endpoints of each -url
  login   log in as an admin and exercise the admin API
  pick    find the first working -url and write it to a YAML file`)
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var urls urlList
	fs.Var(&urls, "url", "API base URL (repeatable)")
	timeout := fs.Duration("timeout", 10*time.Second, "Per-request timeout")
	_ = fs.Parse(args)

	client := probe.New(*timeout)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BASE\tENDPOINT\tSTATUS\tLATENCY\tITEMS\tRESULT")
	failed := 0
	for _, base := range urls.orDefault() {
		for _, r := range client.CheckEndpoints(context.Background(), base, nil) {
			result := "ok"
			if !r.OK() {
				failed++
				result = "FAIL"
				if r.Err != nil {
					result += ": " + r.Err.Error()
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\n", base, r.Name, r.Status, r.Latency.Round(time.Millisecond), r.Items, result)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d endpoint(s) failed", failed)
	}
	return nil
}

func runLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	base := fs.String("url", defaultURL, "API base URL")
	user := fs.String("user", "", "Admin username")
	pass := fs.String("pass", os.Getenv("SITEPROBE_PASSWORD"), "Admin password (default $SITEPROBE_PASSWORD)")
	timeout := fs.Duration("timeout", 10*time.Second, "Per-request timeout")
	_ = fs.Parse(args)

	if *user == "" || *pass == "" {
		return fmt.Errorf("-user and -pass are required")
	}

	report, err := probe.New(*timeout).LoginCheck(context.Background(), *base, *user, *pass)
	if report != nil {
		fmt.Printf("token:   %s…\n", abbreviate(report.Token, 16))
		fmt.Printf("valid:   %v\n", report.Valid)
		for _, st := range []string{"pending", "approved", "rejected"} {
			if n, ok := report.Stats[st]; ok {
				fmt.Printf("%-9s%d\n", st+":", n)
			}
		}
		if report.Stats != nil {
			fmt.Printf("queue:   %d pending\n", report.PendingCount)
		}
	}
	return err
}

func runPick(args []string) error {
	fs := flag.NewFlagSet("pick", flag.ExitOnError)
	var urls urlList
	fs.Var(&urls, "url", "Candidate API base URL (repeatable)")
	write := fs.String("write", "", "YAML file whose api_base_url is updated")
	timeout := fs.Duration("timeout", 10*time.Second, "Per-request timeout")
	_ = fs.Parse(args)

	client := probe.New(*timeout)
	checks := make([]probe.URLCheck, 0, len(urls))
	for _, base := range urls.orDefault() {
		ch := client.TestURL(context.Background(), base)
		switch {
		case ch.Err != nil:
			fmt.Printf("%s: not working (%v)\n", base, ch.Err)
		case ch.HasBlogs:
			fmt.Printf("%s: working, serving blogs\n", base)
		default:
			fmt.Printf("%s: working, no blogs yet\n", base)
		}
		checks = append(checks, ch)
	}

	picked, ok := probe.PickWorking(checks)
	if !ok {
		return fmt.Errorf("no working API URL found")
	}
	fmt.Println("using", picked)

	if *write == "" {
		return nil
	}
	if err := probe.RewriteBaseURL(*write, picked); err != nil {
		return err
	}
	fmt.Printf("updated %s in %s\n", probe.BaseURLKey, *write)
	return nil
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
