package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/Adda-Baaj/iq2us-rss/internal/domain"
)

func sampleEvent() Event {
	ep := domain.Episode{
		Debate: domain.Debate{URL: "https://example.com/debates/x", LastModified: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		Podcast: domain.Podcast{
			Title:    "Should We Abolish the Death Penalty? [Unedited]",
			URL:      "https://cdn.example.com/full.mp3",
			MIMEType: "audio/mpeg",
			Duration: 5734,
		},
	}
	return NewEpisodeEvent("iq2us", ep, 1234, time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC))
}

func TestNewEpisodeEvent(t *testing.T) {
	evt := sampleEvent()
	if evt.ID != hashURL("https://cdn.example.com/full.mp3") || len(evt.ID) != 40 {
		t.Errorf("unexpected id %q", evt.ID)
	}
	if evt.Type != EventTypeNewEpisode || evt.Feed != "iq2us" || evt.Length != 1234 {
		t.Errorf("unexpected event %+v", evt)
	}
	if !evt.PublishedAt.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected debate lastmod fallback, got %v", evt.PublishedAt)
	}
	attrs := evt.Attributes()
	if attrs["event_type"] != EventTypeNewEpisode || attrs["event_id"] != evt.ID || attrs["feed"] != "iq2us" {
		t.Errorf("unexpected attributes %v", attrs)
	}
}

func TestHTTPPublisher(t *testing.T) {
	var (
		gotMethod string
		gotAuth   string
		gotType   string
		gotEvent  Event
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotEvent)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	cfg := PublisherConfig{
		ID:   "webhook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: server.URL, Headers: map[string]string{"Authorization": "Bearer t"}},
	}.sanitize()

	pubs, err := BuildAll(context.Background(), DefaultRegistry(), []PublisherConfig{cfg}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer CloseAll(pubs, nil)

	evt := sampleEvent()
	if err := PublishAll(context.Background(), pubs, []Event{evt}, nil); err != nil {
		t.Fatalf("PublishAll failed: %v", err)
	}
	if gotMethod != http.MethodPost || gotAuth != "Bearer t" || !strings.HasPrefix(gotType, "application/json") {
		t.Errorf("unexpected request: method=%s auth=%q type=%q", gotMethod, gotAuth, gotType)
	}
	if gotEvent.ID != evt.ID || gotEvent.AudioURL != evt.AudioURL || gotEvent.Duration != 5734 {
		t.Errorf("unexpected payload %+v", gotEvent)
	}
}

func TestHTTPPublisherRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "webhook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: server.URL, Method: "PUT", TimeoutSeconds: 2},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := pub.Publish(context.Background(), sampleEvent()); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSSender(t *testing.T) {
	fake := &fakeSQS{}
	sender := &awsSQSSender{queueURL: "https://sqs.example.com/q", client: fake}

	id, err := sender.Send(context.Background(), sampleEvent())
	if err != nil {
		t.Fatal(err)
	}
	if id != "m-1" {
		t.Errorf("unexpected message id %q", id)
	}
	if aws.ToString(fake.input.QueueUrl) != "https://sqs.example.com/q" {
		t.Errorf("unexpected queue url %q", aws.ToString(fake.input.QueueUrl))
	}
	if got := aws.ToString(fake.input.MessageAttributes["event_type"].StringValue); got != EventTypeNewEpisode {
		t.Errorf("unexpected event_type attribute %q", got)
	}
	var body Event
	if err := json.Unmarshal([]byte(aws.ToString(fake.input.MessageBody)), &body); err != nil || body.Title != sampleEvent().Title {
		t.Errorf("unexpected body %q (%v)", aws.ToString(fake.input.MessageBody), err)
	}
}

type fakeSNS struct {
	input *sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{MessageId: aws.String("n-1")}, nil
}

func TestSNSSender(t *testing.T) {
	fake := &fakeSNS{}
	sender := &awsSNSSender{topicARN: "arn:aws:sns:us-east-1:123:episodes", client: fake}

	if _, err := sender.Send(context.Background(), sampleEvent()); err != nil {
		t.Fatal(err)
	}
	if got := aws.ToString(fake.input.Subject); got != sampleEvent().Title {
		t.Errorf("unexpected subject %q", got)
	}
	if got := aws.ToString(fake.input.MessageAttributes["feed"].StringValue); got != "iq2us" {
		t.Errorf("unexpected feed attribute %q", got)
	}
}

func TestSNSSubject(t *testing.T) {
	if got := snsSubject("Café\nDebate"); got != "CafDebate" {
		t.Errorf("got %q", got)
	}
	if got := snsSubject(strings.Repeat("x", 150)); len(got) != 100 {
		t.Errorf("expected 100 characters, got %d", len(got))
	}
}

type fakeSender struct {
	err    error
	sent   []Event
	closed bool
}

func (f *fakeSender) Send(_ context.Context, evt Event) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, evt)
	return "id", nil
}

func (f *fakeSender) Close() error {
	f.closed = true
	return nil
}

func TestPublishAllContinuesPastFailures(t *testing.T) {
	good := &fakeSender{}
	bad := &fakeSender{err: errors.New("throttled")}
	pubs := []Publisher{
		&queuePublisher{id: "bad", typ: TypeQueue, provider: QueueProviderAWSSQS, sender: bad, log: nopLogger{}},
		&queuePublisher{id: "good", typ: TypeQueue, provider: QueueProviderGCP, sender: good, log: nopLogger{}},
	}

	events := []Event{sampleEvent(), sampleEvent()}
	err := PublishAll(context.Background(), pubs, events, nil)
	if err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(good.sent) != 2 {
		t.Errorf("expected the healthy publisher to receive both events, got %d", len(good.sent))
	}

	CloseAll(pubs, nil)
	if !good.closed || !bad.closed {
		t.Error("expected every sender to be closed")
	}
}

func TestBuildAllUnknownType(t *testing.T) {
	_, err := BuildAll(context.Background(), NewRegistry(nil), []PublisherConfig{{ID: "x", Type: "smtp"}}, nil)
	if err == nil {
		t.Fatal("expected error for unregistered type")
	}
}
