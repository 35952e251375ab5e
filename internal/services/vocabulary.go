// internal/services/vocabulary.go
package services

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
)

// Vocabulary is the fixed term index embeddings project into. Unknown
// tokens are ignored, never hashed, so text with no vocabulary overlap
// embeds to a zero vector ("no signal").
type Vocabulary struct {
	index   map[string]int
	weights map[models.SnippetCategory]float64
}

// vocabularyFile is the YAML shape of a vocabulary override file.
type vocabularyFile struct {
	Terms           []string           `yaml:"terms"`
	CategoryWeights map[string]float64 `yaml:"category_weights,omitempty"`
}

// NewVocabulary builds a vocabulary from an ordered term list. Term order
// fixes embedding indices, so lists must stay append-only to keep stored
// vectors comparable.
func NewVocabulary(terms []string) *Vocabulary {
	v := &Vocabulary{
		index:   make(map[string]int, len(terms)),
		weights: make(map[models.SnippetCategory]float64),
	}
	for i, term := range terms {
		if _, exists := v.index[term]; !exists {
			v.index[term] = i
		}
	}
	return v
}

// LoadVocabularyFile reads a YAML vocabulary override.
func LoadVocabularyFile(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary file: %w", err)
	}
	if len(file.Terms) == 0 {
		return nil, fmt.Errorf("vocabulary file has no terms: %s", path)
	}

	v := NewVocabulary(file.Terms)
	for name, weight := range file.CategoryWeights {
		v.weights[models.SnippetCategory(name)] = weight
	}
	return v, nil
}

// Lookup returns the index of a known term.
func (v *Vocabulary) Lookup(token string) (int, bool) {
	idx, ok := v.index[token]
	return idx, ok
}

// Size returns the number of indexed terms.
func (v *Vocabulary) Size() int {
	return len(v.index)
}

// CategoryWeight returns the embedding weight for a snippet category,
// falling back to the model defaults when the vocabulary has no override.
func (v *Vocabulary) CategoryWeight(category models.SnippetCategory) float64 {
	if w, ok := v.weights[category]; ok {
		return w
	}
	return category.CategoryWeight()
}

// DefaultVocabulary returns the built-in Korean/English webnovel
// vocabulary. Terms are grouped by domain; order is append-only.
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(defaultVocabularyTerms)
}

var defaultVocabularyTerms = []string{
	// Emotion (Korean)
	"기쁨", "기뻤다", "슬픔", "슬펐다", "분노", "화가", "화났다", "눈물",
	"웃었다", "미소", "두려움", "무서웠다", "놀랐다", "절망", "행복", "행복했다",
	"사랑", "사랑했다", "미움", "증오", "질투", "불안", "외로움", "그리움",
	"부끄러움", "수치심", "후회", "안도", "설렘", "떨렸다",
	// Emotion (English)
	"joy", "sad", "sadness", "anger", "angry", "tears", "smiled", "laughed",
	"fear", "afraid", "surprised", "despair", "happy", "love", "loved",
	"hate", "jealous", "anxious", "lonely", "regret", "relief",
	// Action (Korean)
	"달렸다", "뛰었다", "걸었다", "잡았다", "휘둘렀다", "베었다", "찔렀다",
	"싸웠다", "공격했다", "막았다", "피했다", "던졌다", "움직였다", "멈췄다",
	"일어났다", "앉았다", "쓰러졌다", "도망쳤다", "쫓았다", "숨었다",
	"열었다", "닫았다", "들었다", "내렸다", "꺼냈다",
	// Action (English)
	"ran", "walked", "grabbed", "swung", "cut", "stabbed", "fought",
	"attacked", "blocked", "dodged", "threw", "moved", "stopped", "stood",
	"fell", "fled", "chased", "hid", "opened", "closed",
	// Speech & register (Korean)
	"말했다", "속삭였다", "외쳤다", "소리쳤다", "중얼거렸다", "대답했다",
	"물었다", "습니다", "합니다", "입니다", "했습니다", "하십시오", "해요",
	"예요", "이에요", "했어", "있잖아", "그래", "글쎄", "저기", "야",
	// Speech (English)
	"said", "whispered", "shouted", "muttered", "answered", "asked",
	"replied", "exclaimed",
	// Personality (Korean)
	"차가운", "차갑다", "따뜻한", "따뜻하다", "친절한", "냉정한", "냉혹한",
	"다정한", "무뚝뚝한", "오만한", "겸손한", "용감한", "비겁한", "교활한",
	"정직한", "충성스러운", "고집스러운", "내성적인", "활발한", "잔인한",
	// Personality (English)
	"cold", "warm", "kind", "cruel", "arrogant", "humble", "brave",
	"cowardly", "cunning", "honest", "loyal", "stubborn", "gentle", "fierce",
	// Webnovel genre terms (Korean)
	"마법", "마나", "검", "검술", "기사", "왕국", "왕궁", "황제", "황녀",
	"공작", "영애", "아카데미", "헌터", "던전", "몬스터", "각성", "회귀",
	"환생", "빙의", "시스템", "레벨", "스킬", "길드", "흑막", "복선",
	"저주", "축복", "계약", "정령", "용", "마왕", "성녀", "기억",
	// Webnovel genre terms (English)
	"magic", "mana", "sword", "knight", "kingdom", "palace", "emperor",
	"duke", "academy", "hunter", "dungeon", "monster", "awakening",
	"regression", "reincarnation", "possession", "system", "level", "skill",
	"guild", "villain", "curse", "blessing", "contract", "spirit", "dragon",
	// Narrative connective words
	"갑자기", "천천히", "조용히", "마침내", "결국", "그러나", "하지만",
	"suddenly", "slowly", "quietly", "finally", "however",
}
