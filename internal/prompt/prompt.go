// Package prompt builds the natural-language instructions sent to the
// model. The wording here is load-bearing: it carries the output
// contract, the dedup policy, and the shortfall policy, so all of it
// lives in one place and the builders only interpolate request fields.
package prompt

import (
	"fmt"
	"strings"

	"github.com/bootstobeats/stepfinder/internal/model"
)

// System is the assistant persona. It goes out on the system channel of
// every call so providers with prompt caching can reuse it.
const System = `You are Boots to Beats, an expert line dance assistant.

You help dancers figure out which line dance choreographies go with specific songs.`

const itemSchema = `    {
      "rank": 1,
      "name": "Name of the choreography",
      "estimated_level": "Beginner | High Beginner | Improver | Intermediate | Advanced | Unknown",
      "estimated_region": "EU | US | UK | Global | Unknown",
      "type": "step_sheet | tutorial_video | article | other",
      "fit_type": "dedicated_for_song | compatible_generic",
      "url": "https://...",
      "extra_sources": [
        "https://... (optional, other relevant links)"
      ],
      "reason": "Short explanation why this is a good match (fit to level/region/song, popularity, etc.)"
    }`

const songInfoSchema = `  "song_info": {
    "bpm": "e.g. 110 or 88-92",
    "tempo_label": "slow | mid-tempo | fast",
    "style": "musical style or genre",
    "time_signature": "e.g. 4/4",
    "dance_feel": "how the song feels on a dance floor",
    "typical_dance_styles": ["line dance styles that commonly fit this song"],
    "summary": "2-3 sentence profile of the song for dancers",
    "sources": ["https://..."]
  }`

const dedupPolicy = `DEDUPLICATION:
The same choreography is often posted on several sites. Collapse copies (same name and
choreographer, or clearly the same steps) into ONE entry: put the best link in "url" and
the other relevant links in "extra_sources".`

const outputRules = `The JSON must be valid (no trailing commas, no comments) and must not contain any additional fields.`

// Build returns the single-call instruction: song analysis plus both
// dedicated and compatible choreographies in one answer.
func Build(req model.SearchRequest) string {
	return fmt.Sprintf(`%s

TASK:
1. Use web search to find ACTUAL LINE DANCE CHOREOGRAPHIES (step sheets, demo/tutorial videos,
   or dance descriptions) that are clearly linked to this specific song.
2. Analyze the song itself from reliable sources: tempo (BPM), musical style, time signature,
   and how it feels to dance to. Fill the "song_info" block with that profile.
3. Prefer choreographies that:
   - Explicitly mention the song and/or artist in the title or description, and
   - Match the requested level as closely as possible:
       * Beginner, High Beginner, Improver, Intermediate, Advanced
   - Are suitable or commonly used in the requested region (if inferable).
4. Also include COMPATIBLE choreographies: dances written for other songs whose tempo, rhythm,
   and feel fit this song. Mark those with "fit_type": "compatible_generic" and dances written
   for this song with "fit_type": "dedicated_for_song".
5. Exclude:
   - General news articles about the song.
   - Non-dance content.
   - Choreographies for completely different songs presented as dedicated matches.

%s

SHORTFALL:
Fewer than %d entries in a group is fine. Never pad a group with weak matches and never
invent choreographies or URLs.

OUTPUT FORMAT (IMPORTANT):
Return ONLY a single JSON object, no extra text, with exactly this structure:

{
  "song": %q,
  "artist": %q,
  "requested_level": %q,
  "requested_region": %q,
%s,
  "choreographies": [
%s
    // Up to %d dedicated and up to %d compatible items, ranked from best to worst
  ]
}

%s`,
		userRequest(req), dedupPolicy, req.MaxResults,
		req.SongTitle, req.Artist, string(req.LevelOrAny()), req.Region,
		songInfoSchema, itemSchema, req.MaxResults, req.MaxResults, outputRules)
}

// BuildAnalysis returns the first instruction of the two-call flow:
// profile the song and return only choreographies written for it.
func BuildAnalysis(req model.SearchRequest) string {
	return fmt.Sprintf(`%s

TASK:
1. Use web search to analyze the song itself from reliable sources: tempo (BPM), musical style,
   time signature, and how it feels to dance to. Fill the "song_info" block with that profile.
2. Find ACTUAL LINE DANCE CHOREOGRAPHIES (step sheets, demo/tutorial videos, or dance
   descriptions) written specifically for this song. Every entry gets
   "fit_type": "dedicated_for_song".
3. Prefer choreographies that:
   - Explicitly mention the song and/or artist in the title or description, and
   - Match the requested level as closely as possible:
       * Beginner, High Beginner, Improver, Intermediate, Advanced
   - Are suitable or commonly used in the requested region (if inferable).
4. Exclude general news articles, non-dance content, and dances for other songs.

%s

SHORTFALL:
Fewer than %d entries is fine. If no choreography was written for this song, return an empty
"choreographies" array. Never pad with weak matches and never invent choreographies or URLs.

OUTPUT FORMAT (IMPORTANT):
Return ONLY a single JSON object, no extra text, with exactly this structure:

{
  "song": %q,
  "artist": %q,
  "requested_level": %q,
  "requested_region": %q,
%s,
  "choreographies": [
%s
    // Up to %d items, ranked from best to worst
  ]
}

%s`,
		userRequest(req), dedupPolicy, req.MaxResults,
		req.SongTitle, req.Artist, string(req.LevelOrAny()), req.Region,
		songInfoSchema, itemSchema, req.MaxResults, outputRules)
}

// BuildCompatible returns the second instruction of the two-call flow:
// find dances written for other songs that still fit this one. The song
// profile from the analysis call is interpolated when available, and
// already-returned dedicated matches are excluded by name.
func BuildCompatible(req model.SearchRequest, profileSummary string, exclude []string) string {
	var b strings.Builder
	b.WriteString(userRequest(req))

	if s := strings.TrimSpace(profileSummary); s != "" {
		fmt.Fprintf(&b, "\n\nSONG PROFILE (from a previous analysis):\n%s", s)
	}

	fmt.Fprintf(&b, `

TASK:
1. Use web search to find LINE DANCE CHOREOGRAPHIES written for OTHER songs whose tempo,
   rhythm, and feel make them work well with this song. Every entry gets
   "fit_type": "compatible_generic".
2. Prefer choreographies that:
   - Match the requested level as closely as possible:
       * Beginner, High Beginner, Improver, Intermediate, Advanced
   - Are suitable or commonly used in the requested region (if inferable).
3. Exclude dances choreographed specifically for this song, general news articles, and
   non-dance content.`)

	if len(exclude) > 0 {
		b.WriteString("\n\nALREADY FOUND (do not repeat these):")
		for _, name := range exclude {
			fmt.Fprintf(&b, "\n- %s", name)
		}
	}

	fmt.Fprintf(&b, `

%s

SHORTFALL:
Fewer than %d entries is fine. Never pad with weak matches and never invent choreographies
or URLs.

OUTPUT FORMAT (IMPORTANT):
Return ONLY a single JSON object, no extra text, with exactly this structure:

{
  "song": %q,
  "artist": %q,
  "requested_level": %q,
  "requested_region": %q,
  "choreographies": [
%s
    // Up to %d items, ranked from best to worst
  ]
}

%s`,
		dedupPolicy, req.MaxResults,
		req.SongTitle, req.Artist, string(req.LevelOrAny()), req.Region,
		itemSchema, req.MaxResults, outputRules)

	return b.String()
}

func userRequest(req model.SearchRequest) string {
	var b strings.Builder
	b.WriteString("USER REQUEST:\n")
	fmt.Fprintf(&b, "- Song: %q", req.SongTitle)
	if a := strings.TrimSpace(req.Artist); a != "" {
		fmt.Fprintf(&b, " by %q", a)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Requested level: %s\n", req.LevelOrAny())
	fmt.Fprintf(&b, "- Requested region: %s\n", regionPart(req))
	fmt.Fprintf(&b, "- Max choreographies per group: %d", req.MaxResults)
	return b.String()
}

func regionPart(req model.SearchRequest) string {
	if strings.TrimSpace(req.Region) == "" {
		return "any"
	}
	return req.Region
}
