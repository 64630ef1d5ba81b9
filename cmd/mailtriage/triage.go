package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailtriage/mailtriage/internal/classifier"
	"github.com/mailtriage/mailtriage/internal/config"
	"github.com/mailtriage/mailtriage/internal/email"
	"github.com/mailtriage/mailtriage/internal/inbox"
	"github.com/mailtriage/mailtriage/internal/reply"
	"github.com/mailtriage/mailtriage/internal/triage"
)

type triageOptions struct {
	days        int
	watch       bool
	sendReplies bool
	dryRun      bool
	archive     bool
}

func triageCmd() *cobra.Command {
	var opts triageOptions

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Classify the emails in an IMAP inbox",
		Long: `Connect to your inbox via IMAP, classify recent emails and draft a
reply for each one.

Optionally:
- send the drafted replies (--send-replies, preview with --dry-run)
- move Unproductive emails to the archive folder (--archive)
- keep watching for new emails (--watch)

Requires inbox configuration in config.yaml with IMAP settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriage(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.days, "days", 0, "Number of days to look back (default from config, 7)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Keep watching for new emails")
	cmd.Flags().BoolVar(&opts.sendReplies, "send-replies", false, "Send the drafted replies")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print replies instead of sending them")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "Move Unproductive emails to the archive folder")

	return cmd
}

// triageRun holds what every triaged email needs.
type triageRun struct {
	cfg      *config.Config
	opts     triageOptions
	analyzer *triage.Analyzer
	sender   email.Sender
	self     map[string]bool // addresses that must never get a reply
}

type triaged struct {
	email    inbox.Email
	analysis *triage.Analysis
}

func runTriage(cmd *cobra.Command, opts triageOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := cfg.ValidateInbox(); err != nil {
		fmt.Println("Inbox triage is not configured.")
		fmt.Println()
		fmt.Println("To enable it, add the following to your config.yaml:")
		fmt.Println()
		fmt.Println("inbox:")
		fmt.Println("  enabled: true")
		fmt.Println("  provider: gmail")
		fmt.Println("  email: suporte@example.com")
		fmt.Println("  password: your-app-password  # Use an App Password, not your main password")
		fmt.Println()
		fmt.Println("For Gmail, you'll need to:")
		fmt.Println("  1. Enable 2-Step Verification")
		fmt.Println("  2. Generate an App Password at https://myaccount.google.com/apppasswords")
		fmt.Println("  3. Enable IMAP in Gmail settings")
		return err
	}

	if opts.days <= 0 {
		opts.days = cfg.Inbox.Days
	}

	run := &triageRun{
		cfg:  cfg,
		opts: opts,
		self: map[string]bool{
			strings.ToLower(cfg.Inbox.Email): true,
			strings.ToLower(cfg.Email.From):  true,
		},
	}

	if opts.sendReplies && !opts.dryRun {
		if err := cfg.ValidateEmail(); err != nil {
			return fmt.Errorf("cannot send replies: %w", err)
		}
		run.sender, err = email.NewSender(cfg.Email)
		if err != nil {
			return err
		}
	}

	run.analyzer, err = newAnalyzer(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	monitor := inbox.NewMonitor(cfg.Inbox)
	if err := monitor.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to inbox: %w", err)
	}
	defer monitor.Disconnect()

	fmt.Printf("Triaging %s (last %d days)...\n\n", cfg.Inbox.Folder, opts.days)

	emails, err := monitor.FetchRecentEmails(ctx, opts.days)
	if err != nil {
		return fmt.Errorf("failed to fetch emails: %w", err)
	}

	var results []triaged
	for _, e := range emails {
		t, err := run.process(ctx, e)
		if err != nil {
			fmt.Printf("  failed to triage %q: %v\n", e.Subject, err)
			continue
		}
		results = append(results, t)
	}

	printSummary(results)

	if opts.archive {
		if err := archiveUnproductive(monitor, cfg.Inbox.ArchiveFolder, results, opts.dryRun); err != nil {
			return err
		}
	}

	if !opts.watch {
		return nil
	}

	fmt.Println()
	err = monitor.WatchForNewEmails(ctx, func(e inbox.Email) {
		t, err := run.process(ctx, e)
		if err != nil {
			fmt.Printf("  failed to triage %q: %v\n", e.Subject, err)
			return
		}
		if opts.archive && t.analysis.Category == classifier.Unproductive {
			if err := archiveUnproductive(monitor, cfg.Inbox.ArchiveFolder, []triaged{t}, opts.dryRun); err != nil {
				fmt.Printf("  archive failed: %v\n", err)
			}
		}
	})
	if err == context.Canceled {
		return nil
	}
	return err
}

// process analyzes one email, prints the result and sends the reply when
// asked to.
func (r *triageRun) process(ctx context.Context, e inbox.Email) (triaged, error) {
	analysis, err := r.analyzer.Analyze(e.Text())
	if err != nil {
		return triaged{}, err
	}
	t := triaged{email: e, analysis: analysis}

	flag := ""
	if triage.NeedsReview(analysis) {
		flag = "  [review]"
	}
	fmt.Printf("%-12s %.3f %-10s %s | %s%s\n",
		analysis.Category, analysis.Confidence, analysis.Subtype,
		e.ReceivedAt.Format("2006-01-02"), truncate(e.Subject, 60), flag)

	if !r.opts.sendReplies {
		return t, nil
	}

	if e.From == "" || r.self[strings.ToLower(e.From)] || isAutomatedSender(e.From) {
		fmt.Printf("    skip reply to %q\n", e.From)
		return t, nil
	}

	msg := email.NewReply(r.cfg.Email.From, e.From, r.cfg.Email.SubjectPrefix, e.Subject, e.MessageID, analysis.Reply)

	if r.opts.dryRun {
		fmt.Printf("    [dry-run] To: %s\n", msg.To)
		fmt.Printf("    [dry-run] Subject: %s\n", msg.Subject)
		fmt.Printf("    [dry-run] %s\n", msg.Body)
		return t, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result := r.sender.Send(sendCtx, msg)
	if !result.Success {
		fmt.Printf("    reply to %s failed: %v\n", msg.To, result.Error)
		return t, nil
	}
	fmt.Printf("    replied to %s (%s)\n", msg.To, result.MessageID)
	return t, nil
}

func archiveUnproductive(monitor *inbox.Monitor, folder string, results []triaged, dryRun bool) error {
	var uids []uint32
	for _, t := range results {
		if t.analysis.Category == classifier.Unproductive && t.email.UID != 0 {
			uids = append(uids, t.email.UID)
		}
	}
	if len(uids) == 0 {
		return nil
	}

	if dryRun {
		fmt.Printf("[dry-run] would archive %d emails to '%s'\n", len(uids), folder)
		return nil
	}

	if err := monitor.EnsureFolderExists(folder); err != nil {
		return fmt.Errorf("failed to prepare archive folder: %w", err)
	}
	if err := monitor.ArchiveEmails(uids, folder); err != nil {
		return fmt.Errorf("failed to archive emails: %w", err)
	}
	return nil
}

func printSummary(results []triaged) {
	analyses := make([]*triage.Analysis, len(results))
	for i, t := range results {
		analyses[i] = t.analysis
	}
	s := triage.Summarize(analyses)

	fmt.Println()
	fmt.Println("Summary")
	fmt.Println("=======")
	fmt.Printf("Total:        %d\n", s.Total)
	fmt.Printf("Productive:   %d\n", s.Productive)
	fmt.Printf("Unproductive: %d\n", s.Unproductive)
	if s.NeedReview > 0 {
		fmt.Printf("Need review:  %d (confidence below %.2f)\n", s.NeedReview, triage.ReviewThreshold)
	}

	subtypes := make([]reply.Subtype, 0, len(s.BySubtype))
	for st := range s.BySubtype {
		subtypes = append(subtypes, st)
	}
	sort.Slice(subtypes, func(i, j int) bool { return subtypes[i] < subtypes[j] })
	for _, st := range subtypes {
		fmt.Printf("  %-12s %d\n", st, s.BySubtype[st])
	}
}

var automatedSenders = []string{"no-reply", "noreply", "mailer-daemon", "postmaster", "do-not-reply", "donotreply"}

func isAutomatedSender(addr string) bool {
	lower := strings.ToLower(addr)
	for _, p := range automatedSenders {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
