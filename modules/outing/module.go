package outing

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"
	"github.com/iota-uz/outing-approval/modules/outing/handlers"
	"github.com/iota-uz/outing-approval/modules/outing/infrastructure/line"
	"github.com/iota-uz/outing-approval/modules/outing/infrastructure/persistence"
	"github.com/iota-uz/outing-approval/modules/outing/presentation/controllers"
	"github.com/iota-uz/outing-approval/modules/outing/services"
	"github.com/iota-uz/outing-approval/pkg/application"
	"github.com/iota-uz/outing-approval/pkg/configuration"
	"github.com/iota-uz/outing-approval/pkg/credential"
	"github.com/iota-uz/outing-approval/pkg/webhooks"
)

type ModuleOptions struct {
	Configuration *configuration.Configuration
	// Repository and Notifier replace the configured collaborators when set.
	Repository outingrequest.Repository
	Notifier   services.Notifier
}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{opts: opts}
}

type Module struct {
	opts *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	conf := m.opts.Configuration

	repo := m.opts.Repository
	if repo == nil {
		var err error
		repo, err = NewRepository(context.Background(), conf)
		if err != nil {
			return err
		}
	}
	notifier := m.opts.Notifier
	if notifier == nil {
		notifier = NewNotifier(conf)
	}

	app.RegisterServices(
		services.NewOutingService(repo, notifier, app.EventPublisher()),
	)
	app.RegisterControllers(
		controllers.NewHealthController(),
		controllers.NewOutingController(app, controllers.OutingControllerOptions{
			Verifier: webhooks.NewLineSignatureVerifier(conf.Line.ChannelSecret),
		}),
	)
	handlers.RegisterMetricsEventHandlers(app)
	return nil
}

func (m *Module) Name() string {
	return "outing"
}

// NewRepository builds the row store selected by STORE_BACKEND.
func NewRepository(ctx context.Context, conf *configuration.Configuration) (outingrequest.Repository, error) {
	switch conf.Store.Backend {
	case configuration.StoreMemory:
		return persistence.NewInmemOutingRepository(), nil
	case configuration.StoreXLSX:
		repo, err := persistence.NewXLSXRepository(conf.Store.XLSXPath, conf.Sheets.SheetName)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case configuration.StoreSheets:
		repo, err := persistence.NewSheetsRepository(ctx, persistence.SheetsRepositoryConfig{
			SpreadsheetID: conf.Sheets.SpreadsheetID,
			SheetName:     conf.Sheets.SheetName,
			TokenSource:   NewTokenSource(ctx, conf),
			Endpoint:      conf.Sheets.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", conf.Store.Backend)
	}
}

// NewTokenSource returns the store credential: an exchanged access token by
// default, or the signed assertion itself when exchange is disabled.
func NewTokenSource(ctx context.Context, conf *configuration.Configuration) oauth2.TokenSource {
	signer := credential.NewSigner(conf.Sheets.Scope, conf.Sheets.TokenURL)
	identity := credential.ServiceIdentity{
		Email:      conf.Sheets.ServiceAccountEmail,
		PrivateKey: conf.Sheets.Key(),
	}
	if conf.Sheets.TokenExchange {
		return credential.ExchangeTokenSource(ctx, signer, identity, http.DefaultClient)
	}
	return credential.AssertionTokenSource(signer, identity)
}

func NewNotifier(conf *configuration.Configuration) *line.Client {
	return line.NewClient(line.Config{
		BaseURL:            conf.Line.APIBaseURL,
		ChannelAccessToken: conf.Line.ChannelAccessToken,
		TargetUserID:       conf.Line.TargetUserID,
	})
}
