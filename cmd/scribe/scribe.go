package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"example.com/sttpipeline/internal/cloud"
	"example.com/sttpipeline/internal/types"
	"github.com/pkg/errors"
)

type args struct {
	api  *string
	id   *string
	name *string
	file *string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: scribe send|job [flags]")
		os.Exit(2)
	}
	var arg args

	sendCommand := flag.NewFlagSet("send", flag.ExitOnError)
	sendAPI := sendCommand.String("api", "http://localhost:8080", "The receiver base URL")
	arg.id = sendCommand.String("id", "", "The storage file id")
	arg.name = sendCommand.String("name", "", "The file name")

	jobCommand := flag.NewFlagSet("job", flag.ExitOnError)
	jobAPI := jobCommand.String("api", "http://localhost:8080", "The receiver base URL")
	arg.file = jobCommand.String("file", "", "The storage file id")

	switch os.Args[1] {
	case "send":
		sendCommand.Parse(os.Args[2:])
		arg.api = sendAPI
	case "job":
		jobCommand.Parse(os.Args[2:])
		arg.api = jobAPI
	default:
		fmt.Printf("%q is not valid command.\n", os.Args[1])
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var out string
	var err error
	if sendCommand.Parsed() {
		out, err = SendUpload(ctx, *arg.api, *arg.id, *arg.name)
	}
	if jobCommand.Parsed() {
		out, err = GetJob(ctx, *arg.api, *arg.file)
	}
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
	fmt.Println(out)
}

// SendUpload posts a FILE.UPLOADED notification for one file, as the
// storage service would.
func SendUpload(ctx context.Context, api, id, name string) (string, error) {
	if id == "" || name == "" {
		return "", errors.New("send: -id and -name are required")
	}
	ev := types.UploadEvent{
		Trigger: types.TriggerFileUploaded,
		Source:  types.UploadSource{ID: id, Name: name},
	}
	data, status, err := cloud.PostJSON(ctx, strings.TrimRight(api, "/")+"/webhook", ev)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %s", status, strings.TrimSpace(string(data))), nil
}

func GetJob(ctx context.Context, api, id string) (string, error) {
	if id == "" {
		return "", errors.New("job: -file is required")
	}
	data, status, err := cloud.GetRequest(ctx, strings.TrimRight(api, "/")+"/jobs/"+url.PathEscape(id))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %s", status, strings.TrimSpace(string(data))), nil
}
