package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"posto/config"
	"posto/internal/app"
	"posto/internal/domain/models"
	"posto/internal/services/handover"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// main is thin presentation glue over the core: it parses a subcommand,
// calls into the session manager or the handover engine, and prints the
// result. All policy lives below it.
func main() {
	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	log.Info("posto console", "env", cfg.Env)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storageApp, initStorageErr := app.NewStorageApp(cfg.Storage)
	if initStorageErr != nil {
		panic(initStorageErr)
	}
	defer func(storageApp *app.StorageApp) {
		if closeErr := storageApp.Stop(); closeErr != nil {
			log.Error("closing storage app", "err", closeErr)
		}
	}(storageApp)

	application := app.New(log, cfg, storageApp)

	if err := run(rootCtx, application, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: posto --config=<path> <command> [args]\n%s", commandList)
	}

	switch args[0] {
	case "login":
		if len(args) != 3 {
			return fmt.Errorf("usage: login <username> <password>")
		}
		funcionario, err := a.Session.Login(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("logado como %s\n", funcionario.Nome)
		return nil

	case "logout":
		a.Session.Logout(ctx)
		fmt.Println("sessão encerrada")
		return nil

	case "whoami":
		funcionario, err := a.Session.Funcionario(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s <%s>\n", funcionario.Nome, funcionario.Email)
		if funcionario.Posto != nil {
			fmt.Printf("posto: %s (%s)\n", funcionario.Posto.Nome, funcionario.Posto.ID)
		}
		return nil

	case "lances":
		lances, err := fetchLances(ctx, a)
		if err != nil {
			return err
		}
		for _, lance := range lances {
			fmt.Printf("%s\t%s\t%s\t%s\n", lance.ID, lance.Produto.Nome, lance.Status,
				strings.Join(actionNames(handover.Actions(lance)), ","))
		}
		return nil

	case "produto":
		if len(args) != 2 {
			return fmt.Errorf("usage: produto <lance-id>")
		}
		lance, err := findLance(ctx, a, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s\n%s\npreço: %s  quantidade: %d\n",
			lance.Produto.Nome, lance.Produto.Descricao, lance.Preco, lance.Quantidade)
		for _, imagem := range lance.Produto.Imagens {
			fmt.Println(imagem.URL(a.MediaURL))
		}
		return nil

	case "receber", "entregar", "negar", "devolver":
		if len(args) < 3 {
			return fmt.Errorf("usage: %s <lance-id> <condições separadas por vírgula> [observações]", args[0])
		}
		lance, err := findLance(ctx, a, args[1])
		if err != nil {
			return err
		}
		sub := handover.Submission{Condicoes: splitConditions(args[2])}
		if len(args) > 3 {
			sub.Observacoes = strings.Join(args[3:], " ")
		}

		var registro models.Registro
		switch args[0] {
		case "receber":
			registro, err = a.Handover.Receber(ctx, lance, sub)
		case "entregar":
			registro, err = a.Handover.Entregar(ctx, lance, sub)
		case "negar":
			registro, err = a.Handover.Negar(ctx, lance, sub)
		case "devolver":
			registro, err = a.Handover.Devolver(ctx, lance, sub)
		}
		if err != nil {
			return err
		}
		fmt.Printf("registro %s criado\n", registro.ID)
		return nil

	case "enviar-codigo":
		if len(args) != 3 {
			return fmt.Errorf("usage: enviar-codigo <lance-id> <entrega|devolucao>")
		}
		return a.Handover.EnviarCodigo(ctx, args[1], handover.CodePurpose(args[2]))

	case "confirmar-codigo":
		if len(args) != 4 {
			return fmt.Errorf("usage: confirmar-codigo <lance-id> <codigo> <entrega|devolucao>")
		}
		return a.Handover.ConfirmarCodigo(ctx, args[1], args[2], handover.CodePurpose(args[3]))

	case "mudar-senha":
		if len(args) != 4 {
			return fmt.Errorf("usage: mudar-senha <atual> <nova> <confirmação>")
		}
		return a.Session.ChangePassword(ctx, args[1], args[2], args[3])

	case "reset-senha":
		if len(args) != 2 {
			return fmt.Errorf("usage: reset-senha <email>")
		}
		return a.Session.RequestPasswordReset(ctx, args[1])

	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], commandList)
	}
}

const commandList = `commands:
  login <username> <password>
  logout
  whoami
  lances
  produto <lance-id>
  receber|entregar|negar|devolver <lance-id> <condições> [observações]
  enviar-codigo <lance-id> <entrega|devolucao>
  confirmar-codigo <lance-id> <codigo> <entrega|devolucao>
  mudar-senha <atual> <nova> <confirmação>
  reset-senha <email>`

func fetchLances(ctx context.Context, a *app.App) ([]models.Lance, error) {
	funcionario, err := a.Session.Funcionario(ctx)
	if err != nil {
		return nil, err
	}
	if funcionario.Posto == nil {
		return nil, fmt.Errorf("perfil sem posto associado")
	}
	return a.Handover.Lances(ctx, funcionario.Posto.ID)
}

func findLance(ctx context.Context, a *app.App, lanceID string) (models.Lance, error) {
	lances, err := fetchLances(ctx, a)
	if err != nil {
		return models.Lance{}, err
	}
	for _, lance := range lances {
		if lance.ID == lanceID {
			return lance, nil
		}
	}
	return models.Lance{}, fmt.Errorf("lance %s não encontrado", lanceID)
}

func splitConditions(raw string) []string {
	parts := strings.Split(raw, ",")
	conditions := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			conditions = append(conditions, trimmed)
		}
	}
	return conditions
}

func actionNames(actions []handover.Action) []string {
	names := make([]string, len(actions))
	for i, action := range actions {
		names[i] = string(action)
	}
	return names
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
