package translate

import (
	"context"
	"errors"

	translateapi "cloud.google.com/go/translate/apiv3"
	"cloud.google.com/go/translate/apiv3/translatepb"
	"google.golang.org/api/option"
)

type GoogleTranslate struct {
	c      *translateapi.TranslationClient
	parent string
}

// NewGoogleTranslate uses the Cloud Translation v3 API under projects/<projectID>/locations/global.
// credentialsFile may be empty to fall back to application default credentials.
func NewGoogleTranslate(ctx context.Context, projectID, credentialsFile string) (*GoogleTranslate, error) {
	if projectID == "" {
		return nil, errors.New("google translate requires a project id")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := translateapi.NewTranslationClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleTranslate{c: c, parent: "projects/" + projectID + "/locations/global"}, nil
}

func (g *GoogleTranslate) Close() error { return g.c.Close() }

func (g *GoogleTranslate) Translate(ctx context.Context, text, source, target string) (Result, error) {
	req := &translatepb.TranslateTextRequest{
		Parent:             g.parent,
		Contents:           []string{text},
		MimeType:           "text/plain",
		TargetLanguageCode: target,
	}
	if source != "" && source != "auto" {
		req.SourceLanguageCode = source
	}

	resp, err := g.c.TranslateText(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if len(resp.GetTranslations()) == 0 {
		return Result{}, errors.New("google translate returned no translations")
	}
	tr := resp.GetTranslations()[0]
	return Result{Text: tr.GetTranslatedText(), DetectedSource: tr.GetDetectedLanguageCode()}, nil
}
