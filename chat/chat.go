package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/quizbot/db"
	"github.com/onnwee/quizbot/quiz"
	"github.com/onnwee/quizbot/twitchapi"
)

// eventTimeout bounds the store work done for a single chat message.
const eventTimeout = 15 * time.Second

// Announcer implements quiz.Notifier over the IRC client. Say is fire and
// forget; the client logs delivery problems itself.
type Announcer struct {
	client *twitch.Client
}

func NewAnnouncer(client *twitch.Client) *Announcer {
	return &Announcer{client: client}
}

func (a *Announcer) Announce(channel, text string) {
	a.client.Say(channel, text)
}

// Bot wires the IRC client to the quiz engine.
type Bot struct {
	Client   *twitch.Client
	Registry *quiz.Registry
	Scores   quiz.ScoreStore
	Helix    *twitchapi.Client
	Channels *db.ChannelStore

	// BotNick is the bot's own login, used to ignore its own messages and
	// to accept "@botnick command" addressing.
	BotNick string
	// QuizCooldown rate-limits the quiz command per channel; zero disables
	// the cooldown.
	QuizCooldown time.Duration
}

// Start joins all configured channels and blocks serving chat until ctx is
// done.
func (b *Bot) Start(ctx context.Context) error {
	rows, err := b.Channels.ListChannels(ctx)
	if err != nil {
		return err
	}
	b.Client.OnPrivateMessage(b.handleMessage)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := b.Client.Disconnect(); err != nil {
			slog.Warn("twitch chat disconnect", slog.Any("err", err))
		}
		close(done)
	}()

	for _, row := range rows {
		b.Client.Join(row.Name)
		slog.Info("joining channel", slog.String("channel", row.Name), slog.String("room_id", row.RoomID))
	}
	if err := b.Client.Connect(); err != nil {
		slog.Error("twitch chat connect error", slog.Any("err", err))
	}
	<-done
	return nil
}

func (b *Bot) handleMessage(msg twitch.PrivateMessage) {
	if strings.EqualFold(msg.User.Name, b.BotNick) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	s, err := b.Registry.Session(ctx, msg.RoomID)
	if err != nil {
		slog.Warn("no session for message", slog.String("room_id", msg.RoomID), slog.Any("err", err))
		return
	}

	// Every message is first checked as a guess for the active round.
	if err := s.SubmitGuess(ctx, msg.User.ID, msg.User.DisplayName, msg.Message); err != nil {
		slog.Error("guess handling failed",
			slog.String("channel", s.Channel().Name),
			slog.Any("err", err))
	}

	rest, addressed := stripPrefix(msg.Message, b.BotNick, s.Channel().Prefix)
	if !addressed {
		return
	}
	args := strings.Fields(rest)
	if len(args) == 0 {
		return
	}
	command := strings.ToLower(args[0])
	args = args[1:]

	switch command {
	case "quiz":
		b.cmdQuiz(ctx, s, args)
	case "top":
		b.cmdTop(ctx, s)
	case "ping":
		b.Client.Say(s.Channel().Name, "Pong!")
	case "dice":
		b.cmdDice(s, msg.User.DisplayName)
	default:
		slog.Debug("unknown command", slog.String("command", command))
	}
}
