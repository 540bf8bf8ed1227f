package logger

import (
	"io"
	"log/slog"
	"os"
)

// serviceName は全ログエントリに付与するservice属性の値。
// 複数サービスを集約するログ基盤でのフィルタに使う。
const serviceName = "creatorflow"

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// すべてのエントリにservice属性を付与する。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler).With(slog.String("service", serviceName))
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// writerがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w))
}
