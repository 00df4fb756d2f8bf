package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"

	"github.com/yungbote/studysync-backend/internal/client/connection"
	"github.com/yungbote/studysync-backend/internal/client/presentation"
	"github.com/yungbote/studysync-backend/internal/domain/outline"
	"github.com/yungbote/studysync-backend/internal/navigation"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
)

type options struct {
	Server   string
	Token    string
	Email    string
	Password string
	Series   string
	Week     int
	Realtime connection.Settings
	LogMode  string
}

func loadOptions() options {
	return options{
		Server:   viper.GetString("server"),
		Token:    viper.GetString("token"),
		Email:    viper.GetString("email"),
		Password: viper.GetString("password"),
		Series:   viper.GetString("series"),
		Week:     viper.GetInt("week"),
		Realtime: connection.Settings{
			AppKey: viper.GetString("realtime-key"),
			Host:   viper.GetString("realtime-host"),
			Port:   viper.GetInt("realtime-port"),
			Scheme: viper.GetString("realtime-scheme"),
		},
		LogMode: viper.GetString("log-mode"),
	}
}

// session is one resolved week plus an adapter bound to it.
type session struct {
	log     *logger.Logger
	api     *presentation.API
	screen  *presentation.WeekScreen
	adapter *presentation.Adapter
}

func openSession(ctx context.Context, opts options, role presentation.Role, onChange func(navigation.State, navigation.Action)) (*session, error) {
	if strings.TrimSpace(opts.Series) == "" {
		return nil, errors.New("--series is required")
	}
	log, err := logger.New(opts.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	api, err := presentation.NewAPI(opts.Server, opts.Token)
	if err != nil {
		return nil, err
	}

	var screen *presentation.WeekScreen
	if role == presentation.RoleLeader {
		if opts.Token == "" {
			if opts.Email == "" || opts.Password == "" {
				return nil, errors.New("leader commands need --token or --email and --password")
			}
			token, err := api.Login(ctx, opts.Email, opts.Password)
			if err != nil {
				return nil, fmt.Errorf("login: %w", err)
			}
			api.SetToken(token)
		}
		screen, err = api.Control(ctx, opts.Series, opts.Week)
	} else {
		screen, err = api.Present(ctx, opts.Series, opts.Week)
	}
	if err != nil {
		return nil, fmt.Errorf("load week %s/%d: %w", opts.Series, opts.Week, err)
	}

	adapter := presentation.NewAdapter(api, presentation.Options{
		WeekID:   screen.Week.ID,
		Role:     role,
		Log:      log,
		OnChange: onChange,
	})
	if err := adapter.Load(ctx); err != nil {
		return nil, err
	}
	return &session{log: log, api: api, screen: screen, adapter: adapter}, nil
}

// view is the outline the cursor indexes into.
func (s *session) view() outline.Outline {
	return s.screen.Sections.Participant()
}

func (s *session) close() {
	s.adapter.Detach()
	s.log.Sync()
}

// render prints the item under the cursor of st.
func render(w io.Writer, sections outline.Outline, st navigation.State) {
	if !st.Active {
		fmt.Fprintln(w, "(presentation not started)")
	}
	title := ""
	if st.SectionIndex >= 0 && st.SectionIndex < len(sections) {
		title = sections[st.SectionIndex].Title
	}
	fmt.Fprintf(w, "[%d.%d] %s\n", st.SectionIndex+1, st.ItemIndex+1, title)

	switch it := sections.ItemAt(st.SectionIndex, st.ItemIndex).(type) {
	case outline.TextItem:
		fmt.Fprintln(w, "  "+it.Text)
	case outline.ReferenceItem:
		fmt.Fprintln(w, "  "+it.Ref)
		if st.IsRevealed(st.SectionIndex, st.ItemIndex) {
			fmt.Fprintln(w, "  "+it.Text)
		}
	case outline.PromptsItem:
		for i, q := range it.Questions {
			mark := " "
			if st.HighlightedPromptIndex != nil && *st.HighlightedPromptIndex == i {
				mark = ">"
			}
			fmt.Fprintf(w, " %s %d. %s\n", mark, i+1, q)
		}
	case outline.FacilitatorNoteItem:
		fmt.Fprintln(w, "  note: "+it.Text)
	case outline.CalloutItem:
		fmt.Fprintf(w, "  %s: %s\n", it.Title, it.Content)
	case nil:
		fmt.Fprintln(w, "  (no item)")
	}
}
