package utils

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// ResponseData is the JSON envelope returned by every REST handler.
// Status is only used to set the HTTP status code and is not serialized.
type ResponseData struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded panics on a non-nil error so the recovery middleware can
// translate it into the proper HTTP response.
func PanicIfNeeded(err any, message ...string) {
	if err != nil {
		if len(message) > 0 {
			panic(message[0])
		}
		panic(err)
	}
}

// LoadConfig reads the .env file from the given path, if present.
func LoadConfig(path string) {
	if err := godotenv.Load(path + "/.env"); err != nil {
		logrus.Debugf("no .env file loaded from %s: %v", path, err)
	}
}
