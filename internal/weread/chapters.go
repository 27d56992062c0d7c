package weread

import (
	"encoding/json"
	"log"
	"sort"
	"strconv"
)

// ReviewsChapterUID is the reserved chapter that collects whole-book reviews.
const ReviewsChapterUID = 1000000

// Chapter is a table of contents entry.
type Chapter struct {
	ChapterUID int    `json:"chapterUid"`
	ChapterIdx int    `json:"chapterIdx"`
	Title      string `json:"title"`
	Level      int    `json:"level"`
	UpdateTime int64  `json:"updateTime"`
	ReadAhead  int    `json:"readAhead"`
}

// ReviewsChapter returns the synthetic chapter appended to every chapter set.
func ReviewsChapter() Chapter {
	return Chapter{
		ChapterUID: ReviewsChapterUID,
		ChapterIdx: ReviewsChapterUID,
		Title:      "点评",
		Level:      1,
		UpdateTime: 1683825006,
		ReadAhead:  0,
	}
}

type chapterShape struct {
	name  string
	probe func(body []byte) ([]Chapter, bool)
}

type chapterEnvelope struct {
	Updated *[]Chapter `json:"updated"`
}

// chapterShapes lists every known chapterInfos envelope, in priority order.
var chapterShapes = []chapterShape{
	{"data[0].updated", probeNestedData},
	{"updated", probeFlatUpdated},
	{"[0].updated", probeEnvelopeArray},
	{"chapter array", probeChapterArray},
}

func probeNestedData(body []byte) ([]Chapter, bool) {
	var doc struct {
		Data []chapterEnvelope `json:"data"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false
	}
	if len(doc.Data) != 1 || doc.Data[0].Updated == nil {
		return nil, false
	}
	return *doc.Data[0].Updated, true
}

func probeFlatUpdated(body []byte) ([]Chapter, bool) {
	var doc chapterEnvelope
	if err := json.Unmarshal(body, &doc); err != nil || doc.Updated == nil {
		return nil, false
	}
	return *doc.Updated, true
}

func probeEnvelopeArray(body []byte) ([]Chapter, bool) {
	var doc []chapterEnvelope
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false
	}
	if len(doc) == 0 || doc[0].Updated == nil {
		return nil, false
	}
	return *doc[0].Updated, true
}

func probeChapterArray(body []byte) ([]Chapter, bool) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return nil, false
	}
	if _, ok := raw[0]["chapterUid"]; !ok {
		return nil, false
	}

	var chapters []Chapter
	if err := json.Unmarshal(body, &chapters); err != nil {
		return nil, false
	}
	return chapters, true
}

// NormalizeChapters folds a chapterInfos response into chapters keyed by uid.
// The reviews chapter is always included. An expiry errcode with no chapter
// data yields an empty map instead of an error.
func NormalizeChapters(body []byte) (map[string]Chapter, error) {
	for _, shape := range chapterShapes {
		chapters, ok := shape.probe(body)
		if !ok {
			continue
		}

		chapters = append(chapters, ReviewsChapter())
		result := make(map[string]Chapter, len(chapters))
		for _, c := range chapters {
			result[strconv.Itoa(c.ChapterUID)] = c
		}
		return result, nil
	}

	code, message, _ := parseErrcode(body)
	if isExpiryCode(code) {
		log.Printf("WARNING: WeRead chapterInfos returned errcode %d (cookie may be stale for this endpoint only), continuing with no chapters", code)
		return map[string]Chapter{}, nil
	}
	if code != 0 {
		return nil, classifyErrcode(pathChapterInfos, code, message)
	}
	return nil, &StructuralMismatchError{Endpoint: pathChapterInfos, Detail: "no known chapter envelope matched"}
}

// SortedChapters returns chapters ordered by index. The reviews chapter sorts last.
func SortedChapters(chapters map[string]Chapter) []Chapter {
	out := make([]Chapter, 0, len(chapters))
	for _, c := range chapters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChapterIdx != out[j].ChapterIdx {
			return out[i].ChapterIdx < out[j].ChapterIdx
		}
		return out[i].ChapterUID < out[j].ChapterUID
	})
	return out
}

// parseErrcode reads errcode/errCode and errmsg/errMsg from an object body.
func parseErrcode(body []byte) (int, string, bool) {
	var env struct {
		Errcode *int   `json:"errcode"`
		ErrCode *int   `json:"errCode"`
		Errmsg  string `json:"errmsg"`
		ErrMsg  string `json:"errMsg"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return 0, "", false
	}

	message := env.ErrMsg
	if message == "" {
		message = env.Errmsg
	}
	switch {
	case env.ErrCode != nil && *env.ErrCode != 0:
		return *env.ErrCode, message, true
	case env.Errcode != nil:
		return *env.Errcode, message, true
	case env.ErrCode != nil:
		return *env.ErrCode, message, true
	}
	return 0, "", false
}
