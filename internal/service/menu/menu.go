package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"twitch_stream_monitor/internal/config"
	"twitch_stream_monitor/internal/models"
	twitch_service "twitch_stream_monitor/internal/service/twitch"
)

// MonitorStarter blocks running the poll loop until the context is cancelled.
type MonitorStarter func(ctx context.Context) error

// MenuService is the interactive console for managing the game watch list.
// All mutations persist immediately through the config service.
type MenuService struct {
	configService   *config.Service
	twitchService   *twitch_service.TwitchService
	startMonitoring MonitorStarter

	in    *bufio.Scanner
	lines chan string
	out   io.Writer
}

func NewMenuService(
	configService *config.Service,
	twitchService *twitch_service.TwitchService,
	startMonitoring MonitorStarter,
	in io.Reader,
	out io.Writer,
) *MenuService {
	return &MenuService{
		configService:   configService,
		twitchService:   twitchService,
		startMonitoring: startMonitoring,
		in:              bufio.NewScanner(in),
		out:             out,
	}
}

func (ms *MenuService) Run(ctx context.Context) {
	// Input is pumped through a channel so a prompt can also observe ctx:
	// a blocking stdin read must not hold the process open past Ctrl+C.
	ms.lines = make(chan string)
	go func() {
		defer close(ms.lines)
		for ms.in.Scan() {
			ms.lines <- strings.TrimSpace(ms.in.Text())
		}
	}()

	for ctx.Err() == nil {
		fmt.Fprintln(ms.out, "\n"+strings.Repeat("=", 50))
		fmt.Fprintln(ms.out, "Twitch Stream Monitor - Interactive Menu")
		fmt.Fprintln(ms.out, strings.Repeat("=", 50))
		fmt.Fprintln(ms.out, "1. Search for games")
		fmt.Fprintln(ms.out, "2. View watched games")
		fmt.Fprintln(ms.out, "3. Remove a game from watch list")
		fmt.Fprintln(ms.out, "4. Start monitoring")
		fmt.Fprintln(ms.out, "5. Exit")
		fmt.Fprintln(ms.out, strings.Repeat("=", 50))

		choice, ok := ms.prompt(ctx, "\nEnter your choice (1-5): ")
		if !ok {
			return
		}

		switch choice {
		case "1":
			ms.searchAndAddGame(ctx)
		case "2":
			ms.viewWatchedGames(ctx)
		case "3":
			ms.removeGame(ctx)
		case "4":
			if err := ms.startMonitoring(ctx); err != nil {
				fmt.Fprintf(ms.out, "\n%v\n", err)
			}
		case "5":
			fmt.Fprintln(ms.out, "Exiting...")
			return
		default:
			fmt.Fprintln(ms.out, "Invalid choice. Please try again.")
		}
	}
}

func (ms *MenuService) prompt(ctx context.Context, text string) (string, bool) {
	fmt.Fprint(ms.out, text)

	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-ms.lines:
		return line, ok
	}
}

func (ms *MenuService) searchAndAddGame(ctx context.Context) {
	query, ok := ms.prompt(ctx, "\nEnter game name to search: ")
	if !ok || query == "" {
		fmt.Fprintln(ms.out, "No query entered.")
		return
	}

	fmt.Fprintf(ms.out, "\nSearching for %q...\n", query)

	games, err := ms.twitchService.SearchGames(ctx, query)
	if err != nil {
		if errors.Is(err, models.ErrAuthNotConfigured) {
			fmt.Fprintln(ms.out, "Twitch authentication not configured. Please set twitch_client_id and twitch_client_secret.")
			return
		}
		logrus.Warnf("game search failed: %v", err)
		fmt.Fprintln(ms.out, "Search failed, please try again later.")
		return
	}

	if len(games) == 0 {
		fmt.Fprintln(ms.out, "No games found.")
		return
	}

	fmt.Fprintf(ms.out, "\nFound %d game(s):\n", len(games))
	for i, game := range games {
		fmt.Fprintf(ms.out, "%d. %s (ID: %s)\n", i+1, game.Name, game.GameID)
	}

	selection, ok := ms.prompt(ctx, fmt.Sprintf("\nSelect a game to add (1-%d) or 0 to cancel: ", len(games)))
	if !ok || selection == "0" {
		return
	}

	index, err := strconv.Atoi(selection)
	if err != nil || index < 1 || index > len(games) {
		fmt.Fprintln(ms.out, "Invalid selection.")
		return
	}

	game := games[index-1]

	added, err := ms.configService.AddGameID(game.GameID)
	if err != nil {
		logrus.Errorf("could not persist game id %s: %v", game.GameID, err)
		fmt.Fprintln(ms.out, "Could not save the watch list, please try again.")
		return
	}

	if !added {
		fmt.Fprintf(ms.out, "%q is already in the watch list.\n", game.Name)
		return
	}

	fmt.Fprintf(ms.out, "Added %q (ID: %s) to watch list.\n", game.Name, game.GameID)
}

func (ms *MenuService) viewWatchedGames(ctx context.Context) {
	gameIDs := ms.configService.Criteria().GameIDs
	if len(gameIDs) == 0 {
		fmt.Fprintln(ms.out, "\nNo games in watch list.")
		return
	}

	fmt.Fprintf(ms.out, "\nCurrently watching %d game(s):\n", len(gameIDs))

	for i, gameID := range gameIDs {
		game, err := ms.twitchService.GetGame(ctx, gameID)
		if err != nil || game == nil {
			// Name resolution is cosmetic, the id is still shown.
			fmt.Fprintf(ms.out, "%d. Game ID: %s\n", i+1, gameID)
			continue
		}

		fmt.Fprintf(ms.out, "%d. %s (ID: %s)\n", i+1, game.Name, gameID)
	}
}

func (ms *MenuService) removeGame(ctx context.Context) {
	gameIDs := ms.configService.Criteria().GameIDs
	if len(gameIDs) == 0 {
		fmt.Fprintln(ms.out, "\nNo games in watch list.")
		return
	}

	ms.viewWatchedGames(ctx)

	selection, ok := ms.prompt(ctx, fmt.Sprintf("\nSelect a game to remove (1-%d) or 0 to cancel: ", len(gameIDs)))
	if !ok || selection == "0" {
		return
	}

	index, err := strconv.Atoi(selection)
	if err != nil || index < 1 || index > len(gameIDs) {
		fmt.Fprintln(ms.out, "Invalid selection.")
		return
	}

	gameID := gameIDs[index-1]

	if _, err := ms.configService.RemoveGameID(gameID); err != nil {
		logrus.Errorf("could not persist watch list: %v", err)
		fmt.Fprintln(ms.out, "Could not save the watch list, please try again.")
		return
	}

	fmt.Fprintf(ms.out, "Removed game ID %s from watch list.\n", gameID)
}
