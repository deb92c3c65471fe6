package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/platform/postgres"
	"github.com/phrazzld/scry-recall/internal/service"
	"github.com/phrazzld/scry-recall/internal/service/quiz"
)

// cli runs subcommands against an application and writes JSON results.
type cli struct {
	app    *application
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

// cardView is a card with its derived review figures.
type cardView struct {
	*domain.Card
	Due         bool    `json:"due"`
	SuccessRate float64 `json:"success_rate"`
}

func (c *cli) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "migrate":
		return c.migrate(ctx, args)
	case "card":
		return c.card(ctx, args)
	case "due":
		return c.selectCards(ctx, "due", args)
	case "new":
		return c.selectCards(ctx, "new", args)
	case "categories":
		categories, err := c.app.cards.Categories(ctx)
		if err != nil {
			return err
		}
		return c.write(categories)
	case "session":
		return c.session(ctx, args)
	case "stats":
		if len(args) != 1 {
			return fmt.Errorf("%w: stats <user>", errUsage)
		}
		userStats, err := c.app.stats.UserStats(ctx, args[0])
		if err != nil {
			return err
		}
		return c.write(userStats)
	case "leaderboard":
		return c.leaderboard(ctx, args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func (c *cli) write(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *cli) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) view(card *domain.Card) cardView {
	return cardView{
		Card:        card,
		Due:         c.app.srsService.IsDue(card, c.clock()),
		SuccessRate: c.app.cards.SuccessRate(card),
	}
}

func (c *cli) migrate(ctx context.Context, args []string) error {
	if c.app.db == nil {
		return fmt.Errorf("%w: migrate requires the postgres backend", errUsage)
	}
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	return postgres.Migrate(ctx, c.app.db, command, c.app.logger)
}

func parseID(args []string, what string) (uuid.UUID, error) {
	if len(args) < 1 {
		return uuid.Nil, fmt.Errorf("%w: missing %s id", errUsage, what)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, domain.NewValidationError("id", fmt.Sprintf("%q is not a valid id", args[0]), err)
	}
	return id, nil
}

func cardFlags(fs *pflag.FlagSet, input *service.CardInput) {
	fs.StringVar(&input.Question, "question", input.Question, "question text")
	fs.StringVar(&input.Answer, "answer", input.Answer, "answer text")
	fs.StringVar(&input.Category, "category", input.Category, "category name")
	fs.IntVar(&input.Difficulty, "difficulty", input.Difficulty, "difficulty from 1 to 5")
}

func (c *cli) card(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: card add|show|edit|delete|activate|deactivate", errUsage)
	}
	sub, args := args[0], args[1:]

	switch sub {
	case "add":
		input := service.CardInput{Difficulty: 3}
		fs := c.flags("card add")
		cardFlags(fs, &input)
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		card, err := c.app.cards.CreateCard(ctx, input)
		if err != nil {
			return err
		}
		return c.write(c.view(card))

	case "edit":
		id, err := parseID(args, "card")
		if err != nil {
			return err
		}
		card, err := c.app.cards.GetCard(ctx, id)
		if err != nil {
			return err
		}
		input := service.CardInput{
			Question:   card.Question,
			Answer:     card.Answer,
			Category:   card.Category,
			Difficulty: card.Difficulty,
		}
		fs := c.flags("card edit")
		cardFlags(fs, &input)
		if err := fs.Parse(args[1:]); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		card, err = c.app.cards.EditCard(ctx, id, input)
		if err != nil {
			return err
		}
		return c.write(c.view(card))

	case "show", "delete", "activate", "deactivate":
		id, err := parseID(args, "card")
		if err != nil {
			return err
		}

		var card *domain.Card
		switch sub {
		case "show":
			card, err = c.app.cards.GetCard(ctx, id)
		case "delete":
			if err := c.app.cards.DeleteCard(ctx, id); err != nil {
				return err
			}
			return c.write(map[string]string{"deleted": id.String()})
		case "activate":
			card, err = c.app.cards.SetActive(ctx, id, true)
		case "deactivate":
			card, err = c.app.cards.SetActive(ctx, id, false)
		}
		if err != nil {
			return err
		}
		return c.write(c.view(card))

	default:
		return fmt.Errorf("%w: unknown card command %q", errUsage, sub)
	}
}

func (c *cli) selectCards(ctx context.Context, kind string, args []string) error {
	fs := c.flags(kind)
	category := fs.String("category", "", "only cards in this category")
	limit := fs.Int("limit", c.app.config.Quiz.DefaultMaxCards, "maximum number of cards")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	var filter *string
	if fs.Changed("category") {
		filter = category
	}

	var (
		cards []*domain.Card
		err   error
	)
	if kind == "due" {
		cards, err = c.app.cards.SelectDue(ctx, filter, *limit, c.clock())
	} else {
		cards, err = c.app.cards.SelectNew(ctx, filter, *limit)
	}
	if err != nil {
		return err
	}

	views := make([]cardView, len(cards))
	for i, card := range cards {
		views[i] = c.view(card)
	}
	return c.write(views)
}

func (c *cli) session(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: session start|current|answer|status|publish", errUsage)
	}
	sub, args := args[0], args[1:]

	switch sub {
	case "start":
		fs := c.flags("session start")
		user := fs.String("user", "", "user id")
		kind := fs.String("type", string(domain.SessionTypeMixed), "session type: review, new or mixed")
		category := fs.String("category", "", "only cards in this category")
		maxCards := fs.Int("max-cards", c.app.config.Quiz.DefaultMaxCards, "maximum number of cards")
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}

		sessionType, err := domain.ParseSessionType(*kind)
		if err != nil {
			return err
		}
		input := quiz.StartInput{UserID: *user, Type: sessionType, MaxCards: *maxCards}
		if fs.Changed("category") {
			input.Category = category
		}

		session, err := c.app.quiz.Start(ctx, input)
		if err != nil {
			return err
		}
		return c.write(session)

	case "current":
		id, err := parseID(args, "session")
		if err != nil {
			return err
		}
		card, err := c.app.quiz.CurrentCard(ctx, id)
		if err != nil {
			return err
		}
		if card == nil {
			return c.write(map[string]bool{"completed": true})
		}
		return c.write(c.view(card))

	case "answer":
		id, err := parseID(args, "session")
		if err != nil {
			return err
		}
		if len(args) != 2 {
			return fmt.Errorf("%w: session answer <id> <quality>", errUsage)
		}
		quality, err := strconv.Atoi(args[1])
		if err != nil {
			return domain.NewValidationError("quality", fmt.Sprintf("%q is not a number", args[1]), err)
		}
		card, err := c.app.quiz.SubmitAnswer(ctx, id, quality)
		if err != nil {
			return err
		}
		return c.write(c.view(card))

	case "status":
		id, err := parseID(args, "session")
		if err != nil {
			return err
		}
		status, err := c.app.quiz.Status(ctx, id)
		if err != nil {
			return err
		}
		return c.write(status)

	case "publish":
		id, err := parseID(args, "session")
		if err != nil {
			return err
		}
		if err := c.app.quiz.PublishCompletion(ctx, id); err != nil {
			return err
		}
		return c.write(map[string]string{"published": id.String()})

	default:
		return fmt.Errorf("%w: unknown session command %q", errUsage, sub)
	}
}

func (c *cli) leaderboard(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: leaderboard top|rank|score", errUsage)
	}
	sub, args := args[0], args[1:]

	fs := c.flags("leaderboard " + sub)
	periodFlag := fs.String("period", "", "month in YYYY-MM form (default: current month)")
	limit := fs.Int("limit", 10, "number of entries")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	period := domain.PeriodOf(c.clock())
	if *periodFlag != "" {
		p, err := domain.ParsePeriod(*periodFlag)
		if err != nil {
			return err
		}
		period = p
	}

	switch sub {
	case "top":
		entries, err := c.app.leaderboard.Top(ctx, period, *limit)
		if err != nil {
			return err
		}
		return c.write(entries)

	case "rank", "score":
		if fs.NArg() != 1 {
			return fmt.Errorf("%w: leaderboard %s <user>", errUsage, sub)
		}
		user := fs.Arg(0)

		score, err := c.app.leaderboard.Score(ctx, period, user)
		if err != nil {
			return err
		}
		if sub == "score" {
			return c.write(map[string]any{"period": period, "user_id": user, "score": score})
		}

		rank, err := c.app.leaderboard.Rank(ctx, period, user)
		if err != nil {
			return err
		}
		return c.write(domain.LeaderboardEntry{Period: period, UserID: user, Score: score, Rank: rank})

	default:
		return fmt.Errorf("%w: unknown leaderboard command %q", errUsage, sub)
	}
}
