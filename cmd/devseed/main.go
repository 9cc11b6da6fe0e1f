package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/gestaoboulevard/painel/internal/auth"
	"github.com/gestaoboulevard/painel/internal/config"
	"github.com/gestaoboulevard/painel/internal/db"
	"github.com/gestaoboulevard/painel/internal/diretorio"
)

// devseed cria o primeiro administrador em ambiente novo.
func main() {
	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "usage: devseed <nome> <email> <senha>")
		os.Exit(1)
	}

	nome, email, senha := os.Args[1], os.Args[2], os.Args[3]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx := context.Background()

	if err := db.Migrate(ctx, cfg.DBDSN); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	defer pool.Close()

	repo := diretorio.NewRepository(pool)

	usuario, err := repo.Create(ctx, diretorio.CriarUsuarioInput{
		Nome:   nome,
		Email:  email,
		Papel:  diretorio.PapelAdmin,
		Status: diretorio.StatusPendente,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("criar usuário")
	}

	hash, err := auth.Hash(senha)
	if err != nil {
		log.Fatal().Err(err).Msg("hash")
	}

	if err := repo.AtivarComSenha(ctx, usuario.ID, hash); err != nil {
		log.Fatal().Err(err).Msg("ativar")
	}

	log.Info().Str("email", email).Msg("administrador criado")
}
