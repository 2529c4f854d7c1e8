package buildinfo

// Ces variables sont typiquement injectées à la compilation via -ldflags.
// Exemple :
//
//	-X github.com/Guilhem-Bonnet/dubfeed/internal/buildinfo.Version=v0.1.0
//	-X github.com/Guilhem-Bonnet/dubfeed/internal/buildinfo.Commit=abcdef
//	-X github.com/Guilhem-Bonnet/dubfeed/internal/buildinfo.Date=2026-10-17
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"date,omitempty"`
}

func Current() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// UserAgent est envoyé aux APIs externes (AnimeSchedule, AniList).
func UserAgent() string {
	return "dubfeed/" + Version
}
