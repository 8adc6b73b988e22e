/*
Copyright 2025 Ondo Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/withondo/ondo/config"
	"github.com/withondo/ondo/model"
)

// postJSON delivers a payload to the configured webhook with its headers.
func postJSON(url string, headers map[string]string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// slackNotification sends an error to the configured Slack webhook as a
// block-kit message.
func slackNotification(systemError error) {
	conf, err := config.Fetch()
	if err != nil {
		log.Println(err)
		return
	}
	payload := json.RawMessage(fmt.Sprintf(`{
		"blocks": [
			{
				"type": "header",
				"text": {
					"type": "plain_text",
					"text": "Error From Ondo 🐞",
					"emoji": true
				}
			},
			{
				"type": "section",
				"fields": [
					{
						"type": "mrkdwn",
						"text": "*Error:*\n%v"
					}
				]
			},
			{
				"type": "section",
				"fields": [
					{
						"type": "mrkdwn",
						"text": "*Time:*\n%v"
					}
				]
			}
		]
	}`, systemError.Error(), time.Now().Format(time.RFC822)))
	if err := postJSON(conf.Notification.Slack.WebhookUrl, nil, payload); err != nil {
		log.Println(err)
	}
}

// NotifyError logs a system error and forwards it to the configured webhook
// and Slack channel. Delivery runs in a goroutine so callers never block.
func NotifyError(systemError error) {
	go func(systemError error) {
		logrus.Error(systemError)

		conf, err := config.Fetch()
		if err != nil {
			log.Println(err)
			return
		}
		if conf.Notification.Slack.WebhookUrl != "" {
			slackNotification(systemError)
		}
		if conf.Notification.Webhook.Url == "" {
			return
		}
		payload := map[string]interface{}{
			"event": "ondo.error",
			"error": systemError.Error(),
			"time":  time.Now().Format(time.RFC822),
		}
		if err := postJSON(conf.Notification.Webhook.Url, conf.Notification.Webhook.Headers, payload); err != nil {
			log.Println(err)
		}
	}(systemError)
}

// NotifyCommitFailures reports rows or pairs whose persistence failed during
// a commit pass. The batch itself still succeeds; this surfaces the failing
// identifiers to operators.
func NotifyCommitFailures(jobID string, failed []model.FailedItem) {
	if len(failed) == 0 {
		return
	}
	go func() {
		logrus.WithField("job_id", jobID).Errorf("%d items failed to commit", len(failed))

		conf, err := config.Fetch()
		if err != nil {
			log.Println(err)
			return
		}
		if conf.Notification.Webhook.Url == "" {
			return
		}
		payload := map[string]interface{}{
			"event":  "ondo.commit_failures",
			"job_id": jobID,
			"failed": failed,
			"time":   time.Now().Format(time.RFC822),
		}
		if err := postJSON(conf.Notification.Webhook.Url, conf.Notification.Webhook.Headers, payload); err != nil {
			log.Println(err)
		}
	}()
}
