package ops

import "github.com/joho/godotenv"

// LoadEnv loads a .env file (venue API keys/secrets, profiler endpoints)
// into the process environment if one is present in the working
// directory. Grounded on the pack's config-loading convention
// (sodesu2077-aeromatch, alanyoungcy-polymarketbot): a missing .env is
// not an error, since production deployments set these vars directly.
func LoadEnv() {
	_ = godotenv.Load()
}
