package keyword

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/utils"
	"go.uber.org/zap"
)

// DefaultIndicators are the stock phrases scored by the keyword
// classifier. Matching is case-insensitive and each indicator counts at
// most once per message.
var DefaultIndicators = []string{
	"special offer",
	"limited time",
	"discount",
	"sale",
	"promotion",
	"deal",
	"offer",
	"buy now",
	"subscribe",
	"unsubscribe",
	"marketing",
	"sponsored",
	"advertisement",
	"exclusive deal",
	"limited stock",
	"free shipping",
	"money back guarantee",
	"best price",
	"special pricing",
}

// Classifier is a deterministic advertisement scorer that needs no
// credentials or network. It counts distinct indicator phrases in the
// subject and body; minIndicators hits scores 1.0, so with the default
// threshold two phrases make a message an advertisement.
type Classifier struct {
	indicators    []string
	minIndicators int
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifier creates a new keyword classifier. Extra indicators are
// appended to the default list; minIndicators below one is clamped to
// one.
func NewClassifier(
	extraIndicators []string,
	minIndicators int,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Classifier {
	if minIndicators < 1 {
		minIndicators = 1
	}

	indicators := make([]string, 0, len(DefaultIndicators)+len(extraIndicators))
	indicators = append(indicators, DefaultIndicators...)
	for _, ind := range extraIndicators {
		ind = strings.ToLower(strings.TrimSpace(ind))
		if ind != "" {
			indicators = append(indicators, ind)
		}
	}

	return &Classifier{
		indicators:    indicators,
		minIndicators: minIndicators,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// ClassifyMessage scores a message for advertisement content
func (c *Classifier) ClassifyMessage(ctx context.Context, msg *core.MessageRecord) (*core.ClassificationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body := c.textProcessor.ProcessText(msg.Body, c.maxBodySize)
	text := strings.ToLower(msg.Subject + "\n" + body)

	var matched []string
	for _, ind := range c.indicators {
		if strings.Contains(text, ind) {
			matched = append(matched, ind)
		}
	}

	score := float64(len(matched)) / float64(c.minIndicators)
	if score > 1.0 {
		score = 1.0
	}

	explanation := "no advertisement indicators matched"
	if len(matched) > 0 {
		sort.Strings(matched)
		explanation = fmt.Sprintf("matched %d advertisement indicators: %s",
			len(matched), strings.Join(matched, ", "))
	}

	c.logger.Debug("Keyword classification",
		zap.String("sender", msg.Address),
		zap.Int("matched", len(matched)),
		zap.Float64("score", score))

	return &core.ClassificationResult{
		Score:        score,
		Confidence:   1.0, // the rule is deterministic
		Explanation:  explanation,
		ClassifiedAt: time.Now(),
		ModelUsed:    "keyword",
	}, nil
}
