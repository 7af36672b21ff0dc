package datasource

import (
	"context"
	"errors"

	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

const fakeType models.DbType = "FAKE"

var fakeFormat = EngineFormat{
	Scheme:            "jdbc:fake://",
	DatabaseSeparator: "/",
	DriverClassName:   "org.fake.Driver",
	ValidationQuery:   "select 1",
}

type fakeParamDTO struct {
	models.BaseDatasourceParamDTO
}

func (*fakeParamDTO) Type() models.DbType { return fakeType }

type fakeProcessor struct{}

func (fakeProcessor) CheckParams(dto models.DatasourceParamDTO) error {
	return ValidateDTO(dto)
}

func (fakeProcessor) BuildConnectionParams(dto models.DatasourceParamDTO, opts BuildOptions) (*models.ConnectionParam, error) {
	d, ok := dto.(*fakeParamDTO)
	if !ok {
		return nil, UnexpectedDTO(fakeType, dto)
	}
	return fakeFormat.Build(&d.BaseDatasourceParamDTO, opts)
}

func (fakeProcessor) CreateParamDTO(param *models.ConnectionParam) (models.DatasourceParamDTO, error) {
	base, err := fakeFormat.ParseBase(param)
	if err != nil {
		return nil, err
	}
	return &fakeParamDTO{BaseDatasourceParamDTO: base}, nil
}

// fakeSession records how it was used.
type fakeSession struct {
	param     *models.ConnectionParam
	probeErr  error
	listErr   error
	databases []string
	closed    bool
}

func (s *fakeSession) Probe(ctx context.Context) error { return s.probeErr }

func (s *fakeSession) ListDatabases(ctx context.Context) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.databases, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// mockFactory hands out a preconfigured session.
type mockFactory struct {
	session *fakeSession
	openErr error
}

func (f *mockFactory) NewSession(ctx context.Context, dbType models.DbType, param *models.ConnectionParam) (Session, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.session.param = param
	return f.session, nil
}

func (f *mockFactory) ListTypes() []DatasourceAdapterInfo { return nil }

type wrapCodec struct{}

func (wrapCodec) Encode(s string) (string, error) { return "enc(" + s + ")", nil }

func (wrapCodec) Decode(s string) (string, error) {
	if len(s) < 5 || s[:4] != "enc(" {
		return "", errors.New("not encoded")
	}
	return s[4 : len(s)-1], nil
}

func registerFake(sessionFactory SessionFactory) {
	Register(DatasourceAdapterRegistration{
		Info: DatasourceAdapterInfo{
			Type:        fakeType,
			DisplayName: "Fake",
			Description: "Test engine",
			Icon:        "fake",
		},
		Processor:      fakeProcessor{},
		SessionFactory: sessionFactory,
	})
}

func newFakeDTO() *fakeParamDTO {
	return &fakeParamDTO{BaseDatasourceParamDTO: models.BaseDatasourceParamDTO{
		Name:     "fake01",
		Host:     "192.168.9.1",
		Port:     1521,
		Database: "im",
		UserName: "test",
		Password: "123456",
	}}
}
