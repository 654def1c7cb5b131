package steam

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meur/steamtier/internal/models"
)

const headerImageURL = "https://shared.akamai.steamstatic.com/store_item_assets/steam/apps/%d/header.jpg"

// UnknownGenre is used until a catalog entry supplies the real genre
const UnknownGenre = "Unknown"

type ownedGame struct {
	AppID           int64  `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int64  `json:"playtime_forever"` // minutes
	ImgIconURL      string `json:"img_icon_url"`
	RTimeLastPlayed int64  `json:"rtime_last_played"`
}

type ownedGamesResponse struct {
	Response struct {
		GameCount int         `json:"game_count"`
		Games     []ownedGame `json:"games"`
	} `json:"response"`
}

type familyApp struct {
	AppID                  int64  `json:"appid"`
	Name                   string `json:"name"`
	SortAs                 string `json:"sort_as"`
	OwnerSteamID           string `json:"owner_steamid"`
	RTTimeAcquired         int64  `json:"rt_time_acquired"`
	RTLastPlayed           int64  `json:"rt_last_played"`
	RTPlaytime             int64  `json:"rt_playtime"` // minutes
	ExcludedByLibraryOwner bool   `json:"excluded_by_library_owner"`
}

type familyAppsResponse struct {
	Response struct {
		Apps []familyApp `json:"apps"`
	} `json:"response"`
}

type steamPlayer struct {
	SteamID                  string `json:"steamid"`
	CommunityVisibilityState int    `json:"communityvisibilitystate"`
	PersonaName              string `json:"personaname"`
	ProfileURL               string `json:"profileurl"`
	AvatarFull               string `json:"avatarfull"`
	RealName                 string `json:"realname"`
	TimeCreated              int64  `json:"timecreated"`
	LocCountryCode           string `json:"loccountrycode"`
}

type playerSummariesResponse struct {
	Response struct {
		Players []steamPlayer `json:"players"`
	} `json:"response"`
}

// HeaderImage returns the store header image for an app
func HeaderImage(appID int64) string {
	return fmt.Sprintf(headerImageURL, appID)
}

func mapOwnedGames(games []ownedGame, now time.Time) models.Catalog {
	out := make(models.Catalog, 0, len(games))
	seen := make(map[int64]struct{}, len(games))
	for _, g := range games {
		if _, dup := seen[g.AppID]; dup {
			continue
		}
		seen[g.AppID] = struct{}{}

		image := ""
		if g.ImgIconURL != "" {
			image = HeaderImage(g.AppID)
		}
		hours := math.Round(float64(g.PlaytimeForever)/60*10) / 10
		out = append(out, models.Game{
			ID:          g.AppID,
			Name:        g.Name,
			Image:       image,
			Genre:       UnknownGenre,
			ReleaseYear: now.Year(),
			Playtime:    &hours,
			LastPlayed:  unixTime(g.RTimeLastPlayed),
		})
	}
	return out
}

// mapFamilyApps drops apps the owner excluded and sorts by playtime, most
// played first.
func mapFamilyApps(apps []familyApp, now time.Time) models.Catalog {
	kept := make([]familyApp, 0, len(apps))
	seen := make(map[int64]struct{}, len(apps))
	for _, a := range apps {
		if a.ExcludedByLibraryOwner {
			continue
		}
		if _, dup := seen[a.AppID]; dup {
			continue
		}
		seen[a.AppID] = struct{}{}
		kept = append(kept, a)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].RTPlaytime > kept[j].RTPlaytime })

	out := make(models.Catalog, 0, len(kept))
	for _, a := range kept {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("App %d", a.AppID)
		}
		hours := math.Round(float64(a.RTPlaytime) / 60)
		shared := a.OwnerSteamID != ""
		owner := a.OwnerSteamID
		out = append(out, models.Game{
			ID:          a.AppID,
			Name:        name,
			Image:       HeaderImage(a.AppID),
			Genre:       UnknownGenre,
			ReleaseYear: now.Year(),
			Playtime:    &hours,
			IsShared:    &shared,
			OwnerID:     &owner,
			LastPlayed:  unixTime(a.RTLastPlayed),
		})
	}
	return out
}

func mapPlayer(p steamPlayer) *Player {
	player := &Player{
		SteamID:        p.SteamID,
		Username:       p.PersonaName,
		ProfileURL:     p.ProfileURL,
		Avatar:         p.AvatarFull,
		IsPublic:       p.CommunityVisibilityState == 3,
		AccountCreated: unixTime(p.TimeCreated),
	}
	if p.RealName != "" {
		player.RealName = &p.RealName
	}
	if p.LocCountryCode != "" {
		player.Country = &p.LocCountryCode
	}
	return player
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
