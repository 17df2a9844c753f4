// Command quiz walks through the debt quiz in a terminal and submits the
// answers to a running quizd.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/Nomankaif/debtprotection-quiz/internal/config"
	"github.com/Nomankaif/debtprotection-quiz/internal/models"
	"github.com/Nomankaif/debtprotection-quiz/internal/quiz"
	"github.com/Nomankaif/debtprotection-quiz/internal/quizcli"
	"github.com/Nomankaif/debtprotection-quiz/internal/zipcode"
)

func main() {
	defaults, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
	server := flag.String("server", defaults.ServerURL, "quizd base URL (QUIZ_SERVER_URL)")
	zipURL := flag.String("zip-url", defaults.ZipRemoteURL, "remote ZIP lookup base URL, empty for local only (QUIZ_ZIP_REMOTE_URL)")
	long := flag.Bool("struggles", false, "include the struggles step")
	flag.Parse()

	if err := run(*server, *zipURL, *long); err != nil {
		if errors.Is(err, quizcli.ErrAborted) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, quiz.UserMessage(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(server, zipURL string, long bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := quizcli.DefaultSessionStore()
	if err != nil {
		return err
	}
	session := store.Load(time.Now())

	httpClient := &http.Client{Timeout: 15 * time.Second}
	var resolver *zipcode.Resolver
	if zipURL != "" {
		resolver = zipcode.NewResolver(zipcode.Default(), zipcode.NewRemote(zipURL, httpClient, 5*time.Second))
	} else {
		resolver = zipcode.NewResolver(zipcode.Default(), nil)
	}

	var steps []quiz.Step
	if long {
		steps = slices.Insert(quiz.DefaultSteps(), 3, quiz.Step(quiz.StrugglesStep()))
	}

	r := &quizcli.Runner{
		Wizard:    quiz.NewWizard(resolver, session, steps...),
		Prompt:    &quizcli.SurveyPrompter{Out: os.Stdout},
		Submitter: quiz.NewClient(server, httpClient),
		Meta: models.Metadata{
			PageURL:   server,
			UserAgent: "debtprotection-quiz-cli",
		},
	}
	resp, err := r.Run(ctx)
	if err != nil {
		return err
	}
	if err := store.Save(session); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	fmt.Printf("%s (id %s)\n", resp.Message, resp.ID)
	for _, ext := range resp.External {
		switch ext.Status {
		case models.ForwardError:
			fmt.Printf("  %s: %s %s\n", ext.API, ext.Status, ext.Error)
		default:
			fmt.Printf("  %s: %s\n", ext.API, ext.Status)
		}
	}
	return nil
}
