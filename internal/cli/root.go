package cli

import (
	"fmt"
	"os"

	"github.com/hbjs97/flakenv/internal/cmdexec"
	"github.com/hbjs97/flakenv/internal/config"
	"github.com/hbjs97/flakenv/internal/loader"
	"github.com/hbjs97/flakenv/internal/logging"
	"github.com/hbjs97/flakenv/internal/setup"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version은 빌드 시 -ldflags로 덮어쓴다.
var Version = "dev"

// App은 CLI 명령들이 공유하는 의존성이다. 비어있는 필드는 실제 구현으로 채워진다.
type App struct {
	Commander cmdexec.Commander
	CfgPath   string
	Verbose   bool

	// Environ은 현재 프로세스 환경이다. nil이면 os.Environ.
	Environ func() map[string]string
	// Getwd는 flake 탐색의 시작 디렉토리를 반환한다. nil이면 os.Getwd.
	Getwd func() (string, error)
	// Getppid는 세션 id 기본값에 쓰인다. nil이면 os.Getppid.
	Getppid func() int
	// Forms는 setup의 입력 폼이다. nil이면 huh 폼.
	Forms setup.FormRunner
	// Builder가 nil이면 Commander 위의 nix 빌더를 쓴다.
	Builder loader.Builder
	Logger  *zap.Logger
}

// NewRootCmd는 flakenv CLI의 루트 명령을 생성한다.
func (a *App) NewRootCmd() *cobra.Command {
	if a.Commander == nil {
		a.Commander = &cmdexec.RealCommander{}
	}
	if a.CfgPath == "" {
		a.CfgPath = config.DefaultPath()
	}

	cmd := &cobra.Command{
		Use:          "flakenv",
		Short:        "디렉토리에 들어가면 nix flake 개발 환경을 자동으로 불러온다",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initLogger(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.CfgPath, "config", a.CfgPath, "설정 파일 경로")
	cmd.PersistentFlags().BoolVar(&a.Verbose, "verbose", a.Verbose, "상세 로그 (stderr)")

	cmd.AddCommand(
		a.newHookCmd(),
		a.newExportCmd(),
		a.newDumpCmd(),
		a.newStatusCmd(),
		a.newCacheCmd(),
		a.newSessionIDCmd(),
		a.newSessionCmd(),
		a.newDoctorCmd(),
		a.newSetupCmd(),
		a.newVersionCmd(),
	)
	return cmd
}

// initLogger는 stdout을 건드리지 않는 로거를 준비한다.
// stderr가 교체된 경우(테스트) 그 writer로 기록한다.
func (a *App) initLogger(cmd *cobra.Command) error {
	if a.Logger != nil {
		return nil
	}
	if w := cmd.ErrOrStderr(); w != os.Stderr {
		a.Logger = logging.NewWriter(w, a.Verbose)
		return nil
	}
	logger, err := logging.New(a.Verbose)
	if err != nil {
		return fmt.Errorf("cli.initLogger: %w", err)
	}
	a.Logger = logger
	return nil
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *App) getwd() (string, error) {
	if a.Getwd != nil {
		return a.Getwd()
	}
	return os.Getwd()
}

func (a *App) environ() map[string]string {
	if a.Environ != nil {
		return a.Environ()
	}
	return loader.OSEnviron()
}

// sessionID는 플래그, $FLAKENV_SESSION, 부모 pid 순으로 세션 id를 정한다.
func (a *App) sessionID(flag string) string {
	if flag != "" {
		return flag
	}
	if id := a.environ()["FLAKENV_SESSION"]; id != "" {
		return id
	}
	ppid := os.Getppid
	if a.Getppid != nil {
		ppid = a.Getppid
	}
	return fmt.Sprintf("ppid-%d", ppid())
}
