package ocorrencia

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gestaoboulevard/painel/internal/diretorio"
	"github.com/gestaoboulevard/painel/internal/notificacao"
)

type stubRepo struct {
	ocorrencias  map[uuid.UUID]*Ocorrencia
	criada       *Ocorrencia
	criadaInput  CriarInput
	atualizadas  []Atualizacao
	atualizacoes []AtualizarInput
	excluidas    []uuid.UUID
	restauradas  []uuid.UUID
	definitivas  []uuid.UUID
}

func newStubRepo() *stubRepo {
	return &stubRepo{ocorrencias: map[uuid.UUID]*Ocorrencia{}}
}

func (s *stubRepo) Criar(ctx context.Context, input CriarInput, criadoPor uuid.UUID, nomeCriador string, agora time.Time) (*Ocorrencia, error) {
	o := &Ocorrencia{
		ID:           uuid.New(),
		UniqueID:     FormatarUniqueID(1, agora.Year(), input.Area),
		Titulo:       input.Titulo,
		Descricao:    input.Descricao,
		Local:        input.Local,
		Area:         input.Area,
		Status:       StatusAberta,
		Urgente:      input.Urgente,
		Complexidade: input.Complexidade,
		CriadoPor:    criadoPor,
		NomeCriador:  nomeCriador,
		CriadoEm:     agora,
	}
	s.criada = o
	s.criadaInput = input
	s.ocorrencias[o.ID] = o
	return o, nil
}

func (s *stubRepo) GetByID(ctx context.Context, id uuid.UUID) (*Ocorrencia, error) {
	o, ok := s.ocorrencias[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *stubRepo) List(ctx context.Context, filtro Filtro) ([]Ocorrencia, error) {
	var lista []Ocorrencia
	for _, o := range s.ocorrencias {
		lista = append(lista, *o)
	}
	return lista, nil
}

func (s *stubRepo) Update(ctx context.Context, id uuid.UUID, input AtualizarInput) (*Ocorrencia, error) {
	o, ok := s.ocorrencias[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.atualizacoes = append(s.atualizacoes, input)
	if input.Status != nil {
		o.Status = *input.Status
	}
	if input.Titulo != nil {
		o.Titulo = *input.Titulo
	}
	if input.Complexidade != nil {
		o.Complexidade = input.Complexidade
	}
	return o, nil
}

func (s *stubRepo) AppendAtualizacao(ctx context.Context, id uuid.UUID, entrada Atualizacao) error {
	s.atualizadas = append(s.atualizadas, entrada)
	return nil
}

func (s *stubRepo) DefinirPrazo(ctx context.Context, id uuid.UUID, registro PrazoRegistro) error {
	return nil
}

func (s *stubRepo) ExcluirSuave(ctx context.Context, id uuid.UUID) error {
	s.excluidas = append(s.excluidas, id)
	return nil
}

func (s *stubRepo) Restaurar(ctx context.Context, id uuid.UUID) error {
	s.restauradas = append(s.restauradas, id)
	return nil
}

func (s *stubRepo) ExcluirDefinitivo(ctx context.Context, id uuid.UUID) error {
	s.definitivas = append(s.definitivas, id)
	return nil
}

type stubLister struct {
	usuarios []diretorio.Usuario
}

func (s *stubLister) ListAtivos(ctx context.Context) ([]diretorio.Usuario, error) {
	return s.usuarios, nil
}

type stubNotificador struct {
	lotes [][]notificacao.CriarInput
	err   error
}

func (s *stubNotificador) CreateLote(ctx context.Context, inputs []notificacao.CriarInput) error {
	if s.err != nil {
		return s.err
	}
	s.lotes = append(s.lotes, inputs)
	return nil
}

func usuarioTeste(papel string, areas ...string) diretorio.Usuario {
	return diretorio.Usuario{
		ID:     uuid.New(),
		Nome:   "Usuário " + papel,
		Papel:  papel,
		Areas:  areas,
		Status: diretorio.StatusAtivo,
	}
}

func TestCriarNotificaResponsaveis(t *testing.T) {
	admin1 := usuarioTeste(diretorio.PapelAdmin)
	admin2 := usuarioTeste(diretorio.PapelAdmin)
	gestorMan := usuarioTeste(diretorio.PapelGestor, diretorio.AreaManutencao)
	gestorSeg := usuarioTeste(diretorio.PapelGestor, diretorio.AreaSeguranca)
	monitor := usuarioTeste(diretorio.PapelMonitor)

	repo := newStubRepo()
	notifs := &stubNotificador{}
	svc := NewService(repo, &stubLister{usuarios: []diretorio.Usuario{admin1, admin2, gestorMan, gestorSeg, monitor}}, notifs)

	_, err := svc.Criar(context.Background(), CriarInput{
		Titulo:    "Vazamento",
		Descricao: "Infiltração no teto da praça de alimentação",
		Local:     "Praça de alimentação",
		Area:      "manutenção",
	}, &monitor)
	if err != nil {
		t.Fatalf("Criar: %v", err)
	}

	if len(notifs.lotes) != 1 {
		t.Fatalf("esperava 1 lote, recebi %d", len(notifs.lotes))
	}

	destinatarios := map[uuid.UUID]bool{}
	for _, n := range notifs.lotes[0] {
		destinatarios[n.DestinatarioID] = true
		if n.Tipo != notificacao.TipoNova {
			t.Errorf("tipo = %q, esperado %q", n.Tipo, notificacao.TipoNova)
		}
	}

	if len(destinatarios) != 3 {
		t.Fatalf("esperava 3 destinatários (2 admins + gestor da área), recebi %d", len(destinatarios))
	}
	if !destinatarios[admin1.ID] || !destinatarios[admin2.ID] || !destinatarios[gestorMan.ID] {
		t.Error("admins e gestor da área deveriam ser notificados")
	}
	if destinatarios[gestorSeg.ID] {
		t.Error("gestor de outra área não deveria ser notificado")
	}
	if destinatarios[monitor.ID] {
		t.Error("quem abriu não deve se notificar")
	}
}

func TestCriarUrgenteUsaTipoAlerta(t *testing.T) {
	admin := usuarioTeste(diretorio.PapelAdmin)
	autor := usuarioTeste(diretorio.PapelGestor, diretorio.AreaLimpeza)

	repo := newStubRepo()
	notifs := &stubNotificador{}
	svc := NewService(repo, &stubLister{usuarios: []diretorio.Usuario{admin, autor}}, notifs)

	_, err := svc.Criar(context.Background(), CriarInput{
		Titulo:    "Piso molhado",
		Descricao: "Risco de queda na entrada norte",
		Local:     "Entrada norte",
		Area:      "limpeza",
		Urgente:   true,
	}, &autor)
	if err != nil {
		t.Fatalf("Criar: %v", err)
	}

	if len(notifs.lotes) != 1 || len(notifs.lotes[0]) != 1 {
		t.Fatalf("esperava lote único com 1 destinatário, recebi %+v", notifs.lotes)
	}
	if notifs.lotes[0][0].Tipo != notificacao.TipoAlerta {
		t.Errorf("tipo = %q, esperado %q", notifs.lotes[0][0].Tipo, notificacao.TipoAlerta)
	}
}

func TestCriarFanOutFalhaNaoDerrubaCriacao(t *testing.T) {
	autor := usuarioTeste(diretorio.PapelAdmin)

	repo := newStubRepo()
	notifs := &stubNotificador{err: errors.New("banco fora")}
	svc := NewService(repo, &stubLister{usuarios: []diretorio.Usuario{autor}}, notifs)

	criada, err := svc.Criar(context.Background(), CriarInput{
		Titulo:    "Catraca travada",
		Descricao: "Catraca do estacionamento G2 travada",
		Local:     "G2",
		Area:      "estacionamento",
	}, &autor)
	if err != nil {
		t.Fatalf("falha no fan-out não deveria propagar: %v", err)
	}
	if criada == nil || repo.criada == nil {
		t.Fatal("ocorrência deveria permanecer criada")
	}
}

func TestCriarValidacao(t *testing.T) {
	autor := usuarioTeste(diretorio.PapelAdmin)
	svc := NewService(newStubRepo(), &stubLister{}, &stubNotificador{})

	_, err := svc.Criar(context.Background(), CriarInput{Titulo: "Só título"}, &autor)
	if !errors.Is(err, ErrCamposObrigatorios) {
		t.Errorf("esperava ErrCamposObrigatorios, recebi %v", err)
	}

	_, err = svc.Criar(context.Background(), CriarInput{
		Titulo:    "t",
		Descricao: "d",
		Local:     "l",
		Area:      "astrologia",
	}, &autor)
	if !errors.Is(err, diretorio.ErrAreaInvalida) {
		t.Errorf("esperava ErrAreaInvalida, recebi %v", err)
	}
}

func TestCriarNormalizaComplexidade(t *testing.T) {
	autor := usuarioTeste(diretorio.PapelAdmin)
	repo := newStubRepo()
	svc := NewService(repo, &stubLister{usuarios: []diretorio.Usuario{autor}}, &stubNotificador{})

	complexidade := " Média "
	_, err := svc.Criar(context.Background(), CriarInput{
		Titulo:       "Elevador parado",
		Descricao:    "Elevador social da torre B travado",
		Local:        "Torre B",
		Area:         "manutenção",
		Complexidade: &complexidade,
	}, &autor)
	if err != nil {
		t.Fatalf("Criar: %v", err)
	}

	if repo.criadaInput.Complexidade == nil || *repo.criadaInput.Complexidade != ComplexidadeMedia {
		t.Errorf("complexidade persistida = %v, esperado %q", repo.criadaInput.Complexidade, ComplexidadeMedia)
	}
}

func TestCriarComplexidadeInvalida(t *testing.T) {
	autor := usuarioTeste(diretorio.PapelAdmin)
	svc := NewService(newStubRepo(), &stubLister{}, &stubNotificador{})

	complexidade := "impossível"
	_, err := svc.Criar(context.Background(), CriarInput{
		Titulo: "t", Descricao: "d", Local: "l", Area: "limpeza",
		Complexidade: &complexidade,
	}, &autor)
	if !errors.Is(err, ErrComplexidadeInvalida) {
		t.Errorf("esperava ErrComplexidadeInvalida, recebi %v", err)
	}
}

func TestAtualizarNormalizaComplexidade(t *testing.T) {
	autor := usuarioTeste(diretorio.PapelAdmin)
	repo := newStubRepo()
	svc := NewService(repo, &stubLister{usuarios: []diretorio.Usuario{autor}}, &stubNotificador{})

	criada, _ := svc.Criar(context.Background(), CriarInput{
		Titulo: "t", Descricao: "d", Local: "l", Area: "limpeza",
	}, &autor)

	complexidade := "ALTA"
	_, err := svc.Atualizar(context.Background(), criada.ID, AtualizarInput{Complexidade: &complexidade}, &autor)
	if err != nil {
		t.Fatalf("Atualizar: %v", err)
	}

	if len(repo.atualizacoes) != 1 {
		t.Fatalf("esperava 1 atualização, recebi %d", len(repo.atualizacoes))
	}
	if got := repo.atualizacoes[0].Complexidade; got == nil || *got != ComplexidadeAlta {
		t.Errorf("complexidade persistida = %v, esperado %q", got, ComplexidadeAlta)
	}
}

func TestMutacaoDeOcorrenciaNaLixeira(t *testing.T) {
	autor := usuarioTeste(diretorio.PapelAdmin)
	repo := newStubRepo()
	svc := NewService(repo, &stubLister{usuarios: []diretorio.Usuario{autor}}, &stubNotificador{})

	criada, _ := svc.Criar(context.Background(), CriarInput{
		Titulo: "t", Descricao: "d", Local: "l", Area: "segurança",
	}, &autor)

	excluidaEm := time.Now()
	repo.ocorrencias[criada.ID].ExcluidaEm = &excluidaEm

	titulo := "novo título"
	if _, err := svc.Atualizar(context.Background(), criada.ID, AtualizarInput{Titulo: &titulo}, &autor); !errors.Is(err, ErrExcluida) {
		t.Errorf("Atualizar na lixeira: esperava ErrExcluida, recebi %v", err)
	}
	if err := svc.RegistrarAtualizacao(context.Background(), criada.ID, "nota", &autor); !errors.Is(err, ErrExcluida) {
		t.Errorf("RegistrarAtualizacao na lixeira: esperava ErrExcluida, recebi %v", err)
	}
	if err := svc.DefinirPrazo(context.Background(), criada.ID, time.Now().Add(time.Hour), &autor); !errors.Is(err, ErrExcluida) {
		t.Errorf("DefinirPrazo na lixeira: esperava ErrExcluida, recebi %v", err)
	}

	// Restaurar continua permitido: é o caminho de saída da lixeira.
	if err := svc.Restaurar(context.Background(), criada.ID, &autor); err != nil {
		t.Errorf("Restaurar deveria passar: %v", err)
	}
}

func TestAtualizarStatusNotificaCriador(t *testing.T) {
	criador := usuarioTeste(diretorio.PapelMonitor)
	gestor := usuarioTeste(diretorio.PapelGestor, diretorio.AreaManutencao)

	repo := newStubRepo()
	notifs := &stubNotificador{}
	svc := NewService(repo, &stubLister{usuarios: []diretorio.Usuario{criador, gestor}}, notifs)

	criada, err := svc.Criar(context.Background(), CriarInput{
		Titulo:    "Lâmpada queimada",
		Descricao: "Corredor B sem iluminação",
		Local:     "Corredor B",
		Area:      "manutenção",
	}, &criador)
	if err != nil {
		t.Fatalf("Criar: %v", err)
	}
	notifs.lotes = nil

	status := "em andamento"
	_, err = svc.Atualizar(context.Background(), criada.ID, AtualizarInput{Status: &status}, &gestor)
	if err != nil {
		t.Fatalf("Atualizar: %v", err)
	}

	if len(repo.atualizadas) != 1 {
		t.Fatalf("mudança de status deveria gerar 1 entrada no log, gerou %d", len(repo.atualizadas))
	}
	if repo.atualizadas[0].AutorNome != gestor.Nome {
		t.Errorf("autor do log = %q", repo.atualizadas[0].AutorNome)
	}

	if len(notifs.lotes) != 1 || len(notifs.lotes[0]) != 1 {
		t.Fatalf("esperava notificação única ao criador, recebi %+v", notifs.lotes)
	}
	if notifs.lotes[0][0].DestinatarioID != criador.ID {
		t.Error("notificação deveria ir para quem abriu")
	}
}

func TestAtualizarStatusPeloCriadorNaoSeNotifica(t *testing.T) {
	criador := usuarioTeste(diretorio.PapelGestor, diretorio.AreaSeguranca)

	repo := newStubRepo()
	notifs := &stubNotificador{}
	svc := NewService(repo, &stubLister{usuarios: []diretorio.Usuario{criador}}, notifs)

	criada, err := svc.Criar(context.Background(), CriarInput{
		Titulo:    "Câmera offline",
		Descricao: "Câmera 14 sem sinal",
		Local:     "Doca 3",
		Area:      "segurança",
	}, &criador)
	if err != nil {
		t.Fatalf("Criar: %v", err)
	}
	notifs.lotes = nil

	status := "concluida"
	_, err = svc.Atualizar(context.Background(), criada.ID, AtualizarInput{Status: &status}, &criador)
	if err != nil {
		t.Fatalf("Atualizar: %v", err)
	}

	if len(notifs.lotes) != 0 {
		t.Errorf("criador mudando o próprio status não deveria gerar notificação, gerou %d lote(s)", len(notifs.lotes))
	}
}

func TestAtualizarStatusInvalido(t *testing.T) {
	criador := usuarioTeste(diretorio.PapelAdmin)

	repo := newStubRepo()
	svc := NewService(repo, &stubLister{usuarios: []diretorio.Usuario{criador}}, &stubNotificador{})

	criada, _ := svc.Criar(context.Background(), CriarInput{
		Titulo: "t", Descricao: "d", Local: "l", Area: "limpeza",
	}, &criador)

	status := "cancelada"
	_, err := svc.Atualizar(context.Background(), criada.ID, AtualizarInput{Status: &status}, &criador)
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("esperava ErrInvalidStatus, recebi %v", err)
	}
}

func TestAutorizacaoMutacao(t *testing.T) {
	criador := usuarioTeste(diretorio.PapelMonitor)
	outroMonitor := usuarioTeste(diretorio.PapelMonitor)
	gestorArea := usuarioTeste(diretorio.PapelGestor, diretorio.AreaManutencao)

	repo := newStubRepo()
	svc := NewService(repo, &stubLister{usuarios: []diretorio.Usuario{criador}}, &stubNotificador{})

	criada, _ := svc.Criar(context.Background(), CriarInput{
		Titulo: "t", Descricao: "d", Local: "l", Area: "manutenção",
	}, &criador)

	if err := svc.ExcluirSuave(context.Background(), criada.ID, &outroMonitor); !errors.Is(err, ErrSemPermissao) {
		t.Errorf("monitor alheio deveria ser barrado, recebi %v", err)
	}
	if err := svc.ExcluirSuave(context.Background(), criada.ID, &criador); err != nil {
		t.Errorf("criador deveria poder excluir: %v", err)
	}
	if err := svc.Restaurar(context.Background(), criada.ID, &gestorArea); err != nil {
		t.Errorf("gestor da área deveria poder restaurar: %v", err)
	}
}

func TestExcluirDefinitivoRestrito(t *testing.T) {
	gestor := usuarioTeste(diretorio.PapelGestor, diretorio.AreaManutencao)
	admin := usuarioTeste(diretorio.PapelAdmin)

	repo := newStubRepo()
	svc := NewService(repo, &stubLister{}, &stubNotificador{})

	id := uuid.New()
	if err := svc.ExcluirDefinitivo(context.Background(), id, &gestor); !errors.Is(err, ErrSemPermissao) {
		t.Errorf("gestor não pode excluir definitivamente, recebi %v", err)
	}
	if err := svc.ExcluirDefinitivo(context.Background(), id, &admin); err != nil {
		t.Errorf("admin deveria poder excluir definitivamente: %v", err)
	}
}

func TestListarLixeiraNegadaParaMonitor(t *testing.T) {
	monitor := usuarioTeste(diretorio.PapelMonitor)
	svc := NewService(newStubRepo(), &stubLister{}, &stubNotificador{})

	_, err := svc.Listar(context.Background(), Filtro{Lixeira: true}, &monitor)
	if !errors.Is(err, ErrSemPermissao) {
		t.Errorf("esperava ErrSemPermissao, recebi %v", err)
	}
}
