package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jask/donormatch/internal/dedup"
	"github.com/jask/donormatch/internal/model"
)

const defaultOpenAIModel = "gpt-4o"

const extractSystemPrompt = `You read scanned donation payments: checks, check stubs, envelopes, remittance slips and online payment receipts.
Return ONLY a JSON array. Each element is one payment with this shape:
{"payment":{"payment_method":"handwritten_check|printed_check|online_payment","check_no_or_payment_ref":"","amount":"0.00","payment_date":"YYYY-MM-DD","check_date":"YYYY-MM-DD","postmark_date":"YYYY-MM-DD","deposit_date":"YYYY-MM-DD","deposit_method":"","memo":""},
 "payer":{"aliases":["names of the individual or couple as written"],"organization_name":"","salutation":""},
 "contact":{"address":{"line_1":"","city":"","state":"2-letter","zip":"5-digit"},"email":"","phone":""}}
Use empty strings for anything not visible. Amounts are positive decimals. Never invent a payer.`

const payerFocusPrompt = `The previous reading found no payer. Look again at the check face, the printed name block, the envelope return address and any signature, and fill payer.aliases or payer.organization_name.`

// OpenAIExtractor sends each document to a vision-capable chat model.
type OpenAIExtractor struct {
	apiKey  string
	model   string
	baseURL string
	client  *openai.Client

	Timeout time.Duration
	Logger  *zap.SugaredLogger
}

func NewOpenAIExtractor(apiKey, model string) *OpenAIExtractor {
	return &OpenAIExtractor{apiKey: strings.TrimSpace(apiKey), model: strings.TrimSpace(model), Timeout: 2 * time.Minute}
}

// SetAPIKey replaces the key and drops the cached client.
func (p *OpenAIExtractor) SetAPIKey(key string) {
	p.apiKey = strings.TrimSpace(key)
	p.client = nil
}

func (p *OpenAIExtractor) SetModel(model string) {
	p.model = strings.TrimSpace(model)
}

// SetBaseURL points the client at a compatible endpoint.
func (p *OpenAIExtractor) SetBaseURL(u string) {
	p.baseURL = strings.TrimSpace(u)
	p.client = nil
}

func (p *OpenAIExtractor) ensureClient() error {
	if p.apiKey == "" {
		return ErrNoAPIKey
	}
	if p.client == nil {
		opts := []option.RequestOption{option.WithAPIKey(p.apiKey), option.WithMaxRetries(1)}
		if p.baseURL != "" {
			opts = append(opts, option.WithBaseURL(p.baseURL))
		}
		c := openai.NewClient(opts...)
		p.client = &c
	}
	return nil
}

// Extract makes one request per document so every record can be tied to its
// source. A document that fails stops the whole call.
func (p *OpenAIExtractor) Extract(ctx context.Context, req ExtractRequest) ([]*model.RawPaymentRecord, error) {
	if err := p.ensureClient(); err != nil {
		return nil, err
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	var out []*model.RawPaymentRecord
	for _, path := range req.Files {
		recs, err := p.extractOne(ctx, path, req.Focus)
		if err != nil {
			return nil, eris.Wrapf(err, "openai: extract %s", filepath.Base(path))
		}
		logger.Infow("extracted document", "source", filepath.Base(path), "records", len(recs), "focus", req.Focus)
		out = append(out, recs...)
	}
	return out, nil
}

func (p *OpenAIExtractor) extractOne(ctx context.Context, path, focus string) ([]*model.RawPaymentRecord, error) {
	part, err := documentPart(path)
	if err != nil {
		return nil, err
	}
	instruction := "Extract every payment in this document."
	if focus == FocusPayer {
		instruction += "\n" + payerFocusPrompt
	}

	m := p.model
	if m == "" {
		m = defaultOpenAIModel
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extractSystemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(instruction),
				part,
			}),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("empty response")
	}

	recs, err := dedup.DecodeBatch(strings.NewReader(stripFences(resp.Choices[0].Message.Content)))
	if err != nil {
		return nil, err
	}
	source := filepath.Base(path)
	for _, r := range recs {
		if strings.TrimSpace(r.SourceDocument) == "" {
			r.SourceDocument = source
		}
	}
	return recs, nil
}

// documentPart inlines a scan as a data URL. PDFs go as file parts, images
// as image parts.
func documentPart(path string) (openai.ChatCompletionContentPartUnionParam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return openai.ChatCompletionContentPartUnionParam{}, eris.Wrap(err, "read document")
	}
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mt, base64.StdEncoding.EncodeToString(data))

	switch {
	case mt == "application/pdf":
		return openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
			FileData: openai.String(dataURL),
			Filename: openai.String(filepath.Base(path)),
		}), nil
	case strings.HasPrefix(mt, "image/"):
		return openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    dataURL,
			Detail: "high",
		}), nil
	}
	return openai.ChatCompletionContentPartUnionParam{}, eris.Errorf("unsupported document type %q", filepath.Ext(path))
}

// stripFences removes a surrounding markdown code fence if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
