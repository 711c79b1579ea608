package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/quizbot/quiz"
)

// stripPrefix reports whether a message is addressed to the bot (via
// "@botnick" or the channel's command prefix, case-insensitively) and
// returns the remainder with the address removed.
func stripPrefix(message, botNick, prefix string) (string, bool) {
	re := regexp.MustCompile(`(?i)^(@` + regexp.QuoteMeta(botNick) + `|` + regexp.QuoteMeta(prefix) + `)`)
	loc := re.FindStringIndex(message)
	if loc == nil {
		return "", false
	}
	return strings.TrimSpace(message[loc[1]:]), true
}

// cmdQuiz starts a round. An optional first argument overrides the round
// duration in seconds.
func (b *Bot) cmdQuiz(ctx context.Context, s *quiz.Session, args []string) {
	ch := s.Channel()
	if b.QuizCooldown > 0 && s.Cooldowns().Has("quiz") {
		left := s.Cooldowns().Remaining("quiz").Round(time.Second)
		b.Client.Say(ch.Name, fmt.Sprintf("⏳ Merci de patienter encore %s avant la prochaine question.", left))
		return
	}

	var duration time.Duration
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			duration = time.Duration(n) * time.Second
		}
	}

	if err := s.StartRound(ctx, duration, quiz.Selector{}); err != nil {
		// The session already posted the user-visible notice.
		if !errors.Is(err, quiz.ErrRoundActive) {
			slog.Error("quiz command failed", slog.String("channel", ch.Name), slog.Any("err", err))
		}
		return
	}
	if b.QuizCooldown > 0 {
		s.Cooldowns().Set("quiz", b.QuizCooldown)
	}
}

// cmdTop announces the channel's score listing, best first. User ids are
// resolved to display names through Helix when possible.
func (b *Bot) cmdTop(ctx context.Context, s *quiz.Session) {
	ch := s.Channel()
	entries, err := b.Scores.ScoresDesc(ctx, ch.ID)
	if err != nil {
		slog.Error("top command failed", slog.String("channel", ch.Name), slog.Any("err", err))
		return
	}
	if len(entries) == 0 {
		b.Client.Say(ch.Name, "Aucun score pour le moment.")
		return
	}

	names := map[string]string{}
	if b.Helix != nil {
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.UserID
		}
		if resolved, err := b.Helix.DisplayNames(ctx, ids); err != nil {
			slog.Warn("display name lookup failed", slog.String("channel", ch.Name), slog.Any("err", err))
		} else {
			names = resolved
		}
	}

	parts := make([]string, 0, len(entries)+1)
	parts = append(parts, "Scores :")
	for _, e := range entries {
		name := names[e.UserID]
		if name == "" {
			name = e.UserID
		}
		parts = append(parts, fmt.Sprintf("%s : %d point(s)", name, e.Points))
	}
	b.Client.Say(ch.Name, strings.Join(parts, " | "))
}

func (b *Bot) cmdDice(s *quiz.Session, userName string) {
	num := rand.IntN(6) + 1
	b.Client.Say(s.Channel().Name, fmt.Sprintf("🎲 @%s a lancé un dé et a obtenu %d", userName, num))
}
