package main

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
	"gopkg.in/yaml.v2"
)

//go:embed stations.yaml
var builtinStations []byte

type Station struct {
	Name     string `yaml:"name"`
	Shortcut string `yaml:"shortcut"`
	URL      string `yaml:"url"`
	SongsURL string `yaml:"songs_url"` // XML feed of recent tracks, optional
}

// Song structure to map the XML data
type Song struct {
	Title  string `xml:"title"`
	Artist string `xml:"artist"`
	Album  string `xml:"album"`
}

// Songs struct to wrap a list of Song elements
type Songs struct {
	Songs []Song `xml:"song"`
}

// parseStations decodes a YAML station list and checks that names and
// shortcuts are usable.
func parseStations(data []byte) ([]Station, error) {
	var stations []Station
	if err := yaml.UnmarshalStrict(data, &stations); err != nil {
		return nil, errors.Wrap(err, "failed to parse stations")
	}

	names := make(map[string]bool)
	shortcuts := make(map[string]bool)
	for _, s := range stations {
		switch {
		case s.Name == "":
			return nil, errors.New("station without a name")
		case s.URL == "":
			return nil, errors.Errorf("station %q has no url", s.Name)
		case utf8.RuneCountInString(s.Shortcut) != 1:
			return nil, errors.Errorf("station %q: shortcut must be one character", s.Name)
		case names[s.Name]:
			return nil, errors.Errorf("duplicate station %q", s.Name)
		case shortcuts[s.Shortcut]:
			return nil, errors.Errorf("station %q: shortcut %q already used", s.Name, s.Shortcut)
		}
		names[s.Name] = true
		shortcuts[s.Shortcut] = true
	}

	if len(stations) == 0 {
		return nil, errors.New("no stations configured")
	}
	return stations, nil
}

// loadStations returns the built-in stations, or the ones in path if it is
// not empty.
func loadStations(path string) ([]Station, error) {
	if path == "" {
		return parseStations(builtinStations)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read stations file")
	}
	return parseStations(data)
}

// findStation matches input against a shortcut first, then a station name.
func findStation(stations []Station, input string) (Station, bool) {
	input = strings.TrimSpace(input)

	if utf8.RuneCountInString(input) == 1 {
		for _, s := range stations {
			if s.Shortcut == input {
				return s, true
			}
		}
	}

	for _, s := range stations {
		if s.Name == input {
			return s, true
		}
	}

	return Station{}, false
}

// resolveStation turns a command argument into a station. Anything that
// looks like a URL is streamed directly.
func resolveStation(stations []Station, arg string) (Station, error) {
	if strings.Contains(arg, "://") {
		return Station{Name: arg, URL: arg}, nil
	}
	if s, ok := findStation(stations, arg); ok {
		return s, nil
	}
	return Station{}, errors.Errorf("unknown station %q", arg)
}

func printStations(w io.Writer, stations []Station) {
	for _, s := range stations {
		fmt.Fprintf(w, "%s -- %s\n", s.Shortcut, s.Name)
	}
}

// pickStation asks on w until a valid station is read from r.
func pickStation(r *bufio.Reader, w io.Writer, stations []Station) (Station, error) {
	for {
		fmt.Fprintln(w, "\nAvailable Stations:\n(enter code or 'Ctrl + c' to quit)")
		printStations(w, stations)

		fmt.Fprint(w, "\nEnter the station code or name to play: ")
		input, err := r.ReadString('\n')
		if s, ok := findStation(stations, input); ok {
			return s, nil
		}
		if err != nil {
			return Station{}, errors.Wrap(err, "failed to read station")
		}

		fmt.Fprintln(w, "Invalid station name or shortcut. Please try again.")
	}
}

// fetchTracks downloads the recent tracks feed of a station. Feeds in
// non-UTF-8 charsets are decoded too.
func fetchTracks(ctx context.Context, client *http.Client, songsURL string) ([]Song, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, songsURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "invalid songs URL")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch track data")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("failed to fetch track data: unexpected status %s", resp.Status)
	}

	decoder := xml.NewDecoder(resp.Body)
	decoder.CharsetReader = charset.NewReaderLabel

	var songs Songs
	if err := decoder.Decode(&songs); err != nil {
		return nil, errors.Wrap(err, "failed to parse track data")
	}

	return songs.Songs, nil
}

// printTracks prints the current track and up to five before it.
func printTracks(w io.Writer, stationName string, songs []Song) {
	if len(songs) == 0 {
		return
	}

	current := songs[0]
	fmt.Fprintln(w, "Now playing on", stationName)
	fmt.Fprintln(w, "Track:                               Artist:               Album:")
	fmt.Fprintf(w, "%-35.35s  %-20.20s  %-20.20s\n\n", current.Title, current.Artist, current.Album)

	history := songs[1:]
	if len(history) == 0 {
		return
	}
	if len(history) > 5 {
		history = history[:5]
	}

	fmt.Fprintln(w, "    ----------------------------History------------------------------")
	for _, song := range history {
		fmt.Fprintf(w, "%-35.35s  %-20.20s  %-20.20s\n", song.Title, song.Artist, song.Album)
	}
	fmt.Fprintln(w)
}
