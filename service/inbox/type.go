package inbox

import "github.com/khaledhikmat/dfd-go/model"

// Accept decides whether a file name is worth delivering.
type Accept func(filename string) bool

// IService delivers newly uploaded videos to a single subscriber.
type IService interface {
	Publish(uploads []model.Upload) error
	Subscribe() (<-chan []model.Upload, error)
	Unsubscribe() error
	Close() error
}
