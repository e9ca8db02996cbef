package sqlite

type Config struct {
	Path string `mapstructure:"path" yaml:"path"`
}
