package app

// Command は taskboard バイナリの第1引数で選ぶサブコマンド。
type Command string

const (
	// CommandServe はタスク管理APIを待ち受ける。引数なしの既定値。
	CommandServe Command = "serve"
	// CommandMigrate は埋め込みマイグレーションを DATABASE_URL に適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はローカルの /health を叩いて終了コードで結果を返す。
	// イメージにcurlが無いため、コンテナのHEALTHCHECKから使う。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はos.Args[1:]の先頭からサブコマンドを決める。
// 2番目以降の引数は見ない。未知の名前は serve として扱う。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch Command(args[0]) {
	case CommandMigrate:
		return CommandMigrate
	case CommandHealthcheck:
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
