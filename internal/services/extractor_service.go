// internal/services/extractor_service.go
package services

import (
	"strings"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
)

// dialogueWindow is how far (in runes) a character name may sit from a
// quoted span, within the same paragraph, for the line to be attributed.
const dialogueWindow = 80

// ExtractorService turns raw chapter text into typed behavioral snippets
// attributable to a named character.
type ExtractorService struct{}

// NewExtractorService creates the extractor.
func NewExtractorService() *ExtractorService {
	return &ExtractorService{}
}

var actionKeywords = []string{
	// Korean actor verbs (past narrative forms)
	"달렸", "뛰었", "걸었", "잡았", "휘둘렀", "베었", "찔렀", "싸웠",
	"공격했", "막았", "피했", "던졌", "움직였", "멈췄", "일어났", "쓰러졌",
	"도망쳤", "쫓았", "숨었", "꺼냈", "내리쳤", "부쉈",
	// English
	"ran", "walked", "grabbed", "swung", "struck", "fought", "attacked",
	"blocked", "dodged", "threw", "lunged", "fled", "chased", "smashed",
}

var emotionKeywords = []string{
	// Korean
	"기뻤", "기쁨", "슬펐", "슬픔", "분노", "화가", "화났", "눈물",
	"웃었", "미소", "두려", "무서웠", "놀랐", "절망", "행복", "설렜",
	"떨렸", "불안", "외로", "그리워", "부끄러", "후회", "안도",
	// English
	"joy", "sad", "angry", "anger", "tears", "smiled", "laughed", "wept",
	"afraid", "fear", "surprised", "despair", "happy", "anxious", "lonely",
}

type quotePair struct {
	open  rune
	close rune
}

var quotePairs = []quotePair{
	{'"', '"'},
	{'“', '”'}, // “ ”
	{'「', '」'},
	{'『', '』'},
}

// Extract produces the typed snippets of one chapter for one character.
// A character not textually present yields no snippets at all.
func (s *ExtractorService) Extract(chapterText, characterName string) []models.Snippet {
	if chapterText == "" || characterName == "" {
		return nil
	}
	if !strings.Contains(chapterText, characterName) {
		return nil
	}

	var snippets []models.Snippet

	for _, paragraph := range strings.Split(chapterText, "\n") {
		snippets = append(snippets, extractDialogue(paragraph, characterName)...)
	}

	for _, sentence := range splitSentences(chapterText) {
		if !strings.Contains(sentence, characterName) {
			continue
		}

		isAction := containsAny(sentence, actionKeywords)
		isEmotion := containsAny(sentence, emotionKeywords)

		if isAction {
			snippets = append(snippets, models.Snippet{Text: sentence, Category: models.SnippetAction})
		}
		if isEmotion {
			snippets = append(snippets, models.Snippet{Text: sentence, Category: models.SnippetEmotion})
		}
		if !isAction && !isEmotion && !isQuoted(sentence) {
			snippets = append(snippets, models.Snippet{Text: sentence, Category: models.SnippetDescription})
		}
	}

	return snippets
}

// extractDialogue finds quoted spans in a paragraph and attributes them to
// the character when the name occurs within dialogueWindow runes of the
// span inside that paragraph.
func extractDialogue(paragraph, characterName string) []models.Snippet {
	if !strings.Contains(paragraph, characterName) {
		return nil
	}

	runes := []rune(paragraph)
	nameRunes := []rune(characterName)
	var snippets []models.Snippet

	for i := 0; i < len(runes); i++ {
		pair, ok := openingQuote(runes[i])
		if !ok {
			continue
		}

		end := -1
		for j := i + 1; j < len(runes); j++ {
			if runes[j] == pair.close {
				end = j
				break
			}
		}
		if end == -1 {
			break
		}

		quoted := strings.TrimSpace(string(runes[i+1 : end]))
		if quoted != "" && nameNearSpan(runes, nameRunes, i, end) {
			snippets = append(snippets, models.Snippet{
				Text:     quoted,
				Category: models.SnippetDialogue,
			})
		}

		i = end
	}

	return snippets
}

func openingQuote(r rune) (quotePair, bool) {
	for _, pair := range quotePairs {
		if r == pair.open {
			return pair, true
		}
	}
	return quotePair{}, false
}

func nameNearSpan(runes, name []rune, start, end int) bool {
	lo := start - dialogueWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + dialogueWindow
	if hi > len(runes) {
		hi = len(runes)
	}
	return strings.Contains(string(runes[lo:hi]), string(name))
}

var sentenceEnders = ".!?…。！？\n"

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for _, r := range text {
		if strings.ContainsRune(sentenceEnders, r) {
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()

	return sentences
}

func containsAny(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

func isQuoted(sentence string) bool {
	for _, pair := range quotePairs {
		if strings.ContainsRune(sentence, pair.open) {
			return true
		}
	}
	return false
}
