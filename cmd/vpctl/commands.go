package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"vision-platform-client/internal/adapters/secondary/auth"
	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/core/services"
)

func appFrom(args []interface{}) *app {
	if len(args) == 0 {
		return nil
	}
	a, _ := args[0].(*app)
	return a
}

// fail logs err and reports a failed command.
func fail(msg string, err error) subcommands.ExitStatus {
	log.WithError(err).Error(msg)
	return subcommands.ExitFailure
}

func printYAML(v interface{}) {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	_ = enc.Encode(v)
	_ = enc.Close()
}

// ============================================================================
// create-project
// ============================================================================

type createProjectCmd struct {
	name string
}

func (*createProjectCmd) Name() string     { return "create-project" }
func (*createProjectCmd) Synopsis() string { return "create a project from a dataset folder" }
func (*createProjectCmd) Usage() string {
	return `create-project [-name <name>] <dataset-dir>:
  Create a project from project.yaml, upload every image in the folder and
  its annotations/<image>.json. Failed items are listed and the batch goes on.
`
}

func (c *createProjectCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "project name, overrides project.yaml")
}

func (c *createProjectCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if a == nil || f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	req, err := loadDataset(f.Arg(0), c.name)
	if err != nil {
		return fail("load dataset", err)
	}

	bar := newProgress()
	o, err := a.orchestrator(ctx, bar.report)
	if err != nil {
		return fail("connect", err)
	}

	res, err := o.CreateProjectFromDataset(ctx, req)
	bar.finish()
	if res != nil && res.Project != nil {
		printDatasetResult(os.Stdout, res)
	}
	if err != nil {
		return fail("create project", err)
	}
	if len(res.Failures) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// ============================================================================
// train
// ============================================================================

type trainCmd struct {
	projectID     string
	taskID        string
	interval      time.Duration
	timeout       time.Duration
	failOnTimeout bool
}

func (*trainCmd) Name() string     { return "train" }
func (*trainCmd) Synopsis() string { return "start training and follow the job" }
func (*trainCmd) Usage() string {
	return `train -project <id> [-task <id>] [-interval 5s] [-timeout 30m]:
  Submit a training job and poll it until it finishes or the timeout passes.
  Without -task the first trainable task of the project is trained.
`
}

func (c *trainCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.projectID, "project", "", "project ID")
	f.StringVar(&c.taskID, "task", "", "task ID")
	f.DurationVar(&c.interval, "interval", 0, "poll interval (default from config)")
	f.DurationVar(&c.timeout, "timeout", 0, "monitoring timeout (default from config)")
	f.BoolVar(&c.failOnTimeout, "fail-on-timeout", false, "treat a timeout as a failure")
}

func (c *trainCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if a == nil || c.projectID == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	bar := newProgress()
	o, err := a.orchestrator(ctx, bar.report)
	if err != nil {
		return fail("connect", err)
	}

	taskID := c.taskID
	if taskID == "" {
		project, err := o.Client().GetProject(ctx, c.projectID)
		if err != nil {
			return fail("get project", err)
		}
		tasks := project.TrainableTasks()
		if len(tasks) == 0 {
			return fail("select task", domain.ErrTaskNotTrainable)
		}
		taskID = tasks[0].ID
	}

	res, err := o.TrainAndMonitor(ctx, services.TrainRequest{
		ProjectID: c.projectID,
		TaskID:    taskID,
		Monitor: services.MonitorOptions{
			Interval:      c.interval,
			Timeout:       c.timeout,
			FailOnTimeout: c.failOnTimeout,
		},
	})
	bar.finish()
	if err != nil {
		return fail("train", err)
	}

	return reportMonitor(res)
}

// reportMonitor prints the last known job state. A soft timeout exits 0.
func reportMonitor(res *services.TrainResult) subcommands.ExitStatus {
	printJob(res.LastKnown)
	if res.TimedOut {
		log.Warnf("job %s is still %s; follow it with 'vpctl jobs -watch %s'", res.LastKnown.ID, res.LastKnown.State, res.LastKnown.ID)
		return subcommands.ExitSuccess
	}
	if err := res.Err(); err != nil {
		return fail("job", err)
	}
	return subcommands.ExitSuccess
}

func printJob(j *domain.Job) {
	fmt.Printf("job %s  state=%s  progress=%.0f%%", j.ID, j.State, j.Progress)
	if j.ModelID != "" {
		fmt.Printf("  model=%s", j.ModelID)
	}
	if j.Message != "" {
		fmt.Printf("  message=%q", j.Message)
	}
	fmt.Println()
}

// ============================================================================
// jobs
// ============================================================================

type jobsCmd struct {
	projectID string
	state     string
	watch     bool
}

func (*jobsCmd) Name() string     { return "jobs" }
func (*jobsCmd) Synopsis() string { return "show training jobs" }
func (*jobsCmd) Usage() string {
	return `jobs [-project <id>] [-state <state>] [-watch] [<job-id>]:
  Show one job, or list jobs. -watch follows a single job until it finishes.
`
}

func (c *jobsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.projectID, "project", "", "only jobs of this project")
	f.StringVar(&c.state, "state", "", "only jobs in this state")
	f.BoolVar(&c.watch, "watch", false, "poll the job until it is terminal")
}

func (c *jobsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if a == nil || f.NArg() > 1 || (c.watch && f.NArg() != 1) {
		f.Usage()
		return subcommands.ExitUsageError
	}
	state := domain.JobState(strings.ToUpper(c.state))
	if state != "" && !state.IsValid() {
		f.Usage()
		return subcommands.ExitUsageError
	}

	o, err := a.orchestrator(ctx, nil)
	if err != nil {
		return fail("connect", err)
	}

	if f.NArg() == 1 {
		if c.watch {
			res, err := o.MonitorJob(ctx, f.Arg(0), services.MonitorOptions{})
			if err != nil {
				return fail("watch job", err)
			}
			return reportMonitor(res)
		}
		job, err := o.Client().GetJob(ctx, f.Arg(0))
		if err != nil {
			return fail("get job", err)
		}
		printJob(job)
		return subcommands.ExitSuccess
	}

	jobs, err := o.Client().ListJobs(ctx, domain.JobFilter{ProjectID: c.projectID, State: state})
	if err != nil {
		return fail("list jobs", err)
	}
	for _, j := range jobs {
		printJob(j)
	}
	return subcommands.ExitSuccess
}

// ============================================================================
// export / import / reupload
// ============================================================================

type exportCmd struct{}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "archive a project with its media and annotations" }
func (*exportCmd) Usage() string {
	return `export <project-id>:
  Download a project into the archive store and print the archive reference.
`
}
func (*exportCmd) SetFlags(*flag.FlagSet) {}

func (*exportCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if a == nil || f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	bar := newProgress()
	o, err := a.orchestrator(ctx, bar.report)
	if err != nil {
		return fail("connect", err)
	}
	ref, err := o.DownloadProject(ctx, f.Arg(0))
	bar.finish()
	if err != nil {
		return fail("export", err)
	}
	printYAML(ref)
	return subcommands.ExitSuccess
}

type importCmd struct {
	name     string
	checksum string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "re-create a project from an archive" }
func (*importCmd) Usage() string {
	return `import [-name <name>] [-checksum <sha256>] <archive-name>:
  Verify an archive from the archive store and upload it as a new project.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "project name, defaults to the archived name")
	f.StringVar(&c.checksum, "checksum", "", "expected sha256, defaults to the one in the archive name")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if a == nil || f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	bar := newProgress()
	o, err := a.orchestrator(ctx, bar.report)
	if err != nil {
		return fail("connect", err)
	}
	res, err := o.UploadProject(ctx, domain.ArchiveRef{Name: f.Arg(0), Checksum: c.checksum}, c.name)
	bar.finish()
	return reportImport(res, err)
}

type reuploadCmd struct {
	name           string
	targetURL      string
	targetUsername string
	targetPassword string
	targetToken    string
}

func (*reuploadCmd) Name() string     { return "reupload" }
func (*reuploadCmd) Synopsis() string { return "copy a project to another platform instance" }
func (*reuploadCmd) Usage() string {
	return `reupload -target-url <url> [-target-username <u> -target-password <p> | -target-token <t>] [-name <name>] <project-id>:
  Export a project from the configured platform and import it into the target.
  Target credentials default to the configured ones.
`
}

func (c *reuploadCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "project name on the target")
	f.StringVar(&c.targetURL, "target-url", "", "target platform base URL")
	f.StringVar(&c.targetUsername, "target-username", "", "target username")
	f.StringVar(&c.targetPassword, "target-password", "", "target password")
	f.StringVar(&c.targetToken, "target-token", "", "target personal access token")
}

func (c *reuploadCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if a == nil || f.NArg() != 1 || c.targetURL == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	bar := newProgress()
	source, err := a.orchestrator(ctx, bar.report)
	if err != nil {
		return fail("connect to source", err)
	}

	creds := a.credentials()
	if c.targetUsername != "" || c.targetToken != "" {
		creds = auth.Credentials{Username: c.targetUsername, Password: c.targetPassword, Token: c.targetToken}
	}
	client, err := a.connect(ctx, c.targetURL, creds)
	if err != nil {
		return fail("connect to target", err)
	}
	opts, err := a.orchestratorOptions(ctx, bar.report)
	if err != nil {
		return fail("connect to target", err)
	}
	target := services.NewOrchestrator(client, opts...)

	res, err := services.ReuploadProject(ctx, source, target, f.Arg(0), c.name)
	bar.finish()
	return reportImport(res, err)
}

func reportImport(res *services.ImportResult, err error) subcommands.ExitStatus {
	if res != nil && res.Project != nil {
		printDatasetResult(os.Stdout, &res.DatasetResult)
	}
	if err != nil {
		if errors.Is(err, domain.ErrChecksumMismatch) {
			return fail("archive rejected", err)
		}
		return fail("import", err)
	}
	if len(res.Failures) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// ============================================================================
// deploy
// ============================================================================

type deployCmd struct {
	out       string
	models    string
	publish   bool
	name      string
	namespace string
	runtime   string
}

func (*deployCmd) Name() string     { return "deploy" }
func (*deployCmd) Synopsis() string { return "build a deployment package from trained models" }
func (*deployCmd) Usage() string {
	return `deploy [-out <dir>] [-models <id,id>] [-publish [-serving-name <n>] [-namespace <ns>] [-runtime <r>]] <project-id>:
  Download the newest deployable model of every trainable task into a local
  deployment. -publish archives it and exposes it through KServe when enabled.
`
}

func (c *deployCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "out", "", "output directory")
	f.StringVar(&c.models, "models", "", "comma separated model IDs")
	f.BoolVar(&c.publish, "publish", false, "archive and publish the deployment")
	f.StringVar(&c.name, "serving-name", "", "InferenceService name")
	f.StringVar(&c.namespace, "namespace", "", "InferenceService namespace")
	f.StringVar(&c.runtime, "runtime", "", "serving runtime")
}

func (c *deployCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if a == nil || f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	o, err := a.servingOrchestrator(ctx)
	if err != nil {
		return fail("connect", err)
	}

	req := services.DeployRequest{ProjectID: f.Arg(0), OutputDir: c.out}
	if c.models != "" {
		req.ModelIDs = strings.Split(c.models, ",")
	}
	dep, err := o.DeployProject(ctx, req)
	if err != nil {
		return fail("deploy", err)
	}
	fmt.Printf("deployment written to %s\n", dep.Dir)
	printYAML(dep)

	if !c.publish {
		return subcommands.ExitSuccess
	}
	res, err := o.PublishDeployment(ctx, dep, domain.ServingTarget{
		Name:      c.name,
		Namespace: c.namespace,
		Runtime:   c.runtime,
	})
	if err != nil {
		return fail("publish", err)
	}
	printYAML(res)
	return subcommands.ExitSuccess
}

// ============================================================================
// serving
// ============================================================================

type servingCmd struct {
	namespace string
	delete    bool
}

func (*servingCmd) Name() string     { return "serving" }
func (*servingCmd) Synopsis() string { return "show or remove a published deployment" }
func (*servingCmd) Usage() string {
	return `serving [-namespace <ns>] [-delete] <serving-name>:
  Show the InferenceService status of a published deployment. -delete removes
  it from KServe; the archived package is kept.
`
}

func (c *servingCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.namespace, "namespace", "", "InferenceService namespace")
	f.BoolVar(&c.delete, "delete", false, "unpublish the deployment")
}

func (c *servingCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if a == nil || f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	o, err := a.servingOrchestrator(ctx)
	if err != nil {
		return fail("connect", err)
	}

	if c.delete {
		if err := o.Unpublish(ctx, c.namespace, f.Arg(0)); err != nil {
			return fail("unpublish", err)
		}
		fmt.Printf("unpublished %s\n", f.Arg(0))
		return subcommands.ExitSuccess
	}

	status, err := o.ServingStatus(ctx, c.namespace, f.Arg(0))
	if err != nil {
		return fail("serving status", err)
	}
	printYAML(status)
	return subcommands.ExitSuccess
}
