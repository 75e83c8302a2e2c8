package application_test

import (
	"errors"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/outing-approval/pkg/application"
)

type stubController struct{ key string }

func (c stubController) Register(*mux.Router) {}
func (c stubController) Key() string          { return c.key }

type stubService struct{ name string }

type failingModule struct{}

func (failingModule) Register(application.Application) error { return errors.New("nope") }

func TestApplication_ControllersKeepRegistrationOrder(t *testing.T) {
	app := application.New(&application.ApplicationOptions{Logger: logrus.New()})
	app.RegisterControllers(stubController{"b"}, stubController{"a"}, stubController{"c"}, stubController{"a"})

	var keys []string
	for _, c := range app.Controllers() {
		keys = append(keys, c.Key())
	}
	require.Equal(t, []string{"b", "a", "c"}, keys)
}

func TestApplication_ServiceLookupByType(t *testing.T) {
	app := application.New(&application.ApplicationOptions{Logger: logrus.New()})
	svc := &stubService{name: "x"}
	app.RegisterServices(svc)

	got := app.Service(stubService{}).(*stubService)
	require.Same(t, svc, got)
	require.Panics(t, func() { app.Service(struct{}{}) })
}

func TestLoad_StopsAtFirstFailure(t *testing.T) {
	app := application.New(&application.ApplicationOptions{Logger: logrus.New()})
	err := application.Load(app, failingModule{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "nope")
}
